// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package hostlink

import "fmt"

// EndCodeSize is the length of the end code that opens most responses.
const EndCodeSize = 2

// EndCode is the two character completion code a controller returns.
type EndCode string

// End codes
const (
	EndNormal              EndCode = "00"
	EndNotInRun            EndCode = "01"
	EndNotInMonitor        EndCode = "02"
	EndWriteProtected      EndCode = "03"
	EndAddressOver         EndCode = "04"
	EndNotInProgram        EndCode = "0B"
	EndNotInDebug          EndCode = "0C"
	EndNotInLocal          EndCode = "0D"
	EndParityError         EndCode = "10"
	EndFramingError        EndCode = "11"
	EndOverrun             EndCode = "12"
	EndFCSError            EndCode = "13"
	EndFormatError         EndCode = "14"
	EndEntryDataError      EndCode = "15"
	EndCommandNotSupported EndCode = "16"
	EndFrameLengthError    EndCode = "18"
	EndNotExecutable       EndCode = "19"
	EndIOTableError        EndCode = "20"
	EndCPUError            EndCode = "21"
	EndMemoryProtected     EndCode = "23"
	EndAbortedFCS          EndCode = "A3"
	EndAbortedFormat       EndCode = "A4"
	EndAbortedEntryData    EndCode = "A5"
	EndAbortedFrameLength  EndCode = "A8"
)

var endCodeNames = map[EndCode]string{
	EndNormal:              "normal completion",
	EndNotInRun:            "not executable in RUN mode",
	EndNotInMonitor:        "not executable in MONITOR mode",
	EndWriteProtected:      "not executable with PROM mounted",
	EndAddressOver:         "address over",
	EndNotInProgram:        "not executable in PROGRAM mode",
	EndNotInDebug:          "not executable in DEBUG mode",
	EndNotInLocal:          "not executable in LOCAL mode",
	EndParityError:         "parity error",
	EndFramingError:        "framing error",
	EndOverrun:             "overrun",
	EndFCSError:            "FCS error",
	EndFormatError:         "format error",
	EndEntryDataError:      "entry number data error",
	EndCommandNotSupported: "command not supported",
	EndFrameLengthError:    "frame length error",
	EndNotExecutable:       "not executable",
	EndIOTableError:        "I/O table generation impossible",
	EndCPUError:            "not executable due to CPU unit error",
	EndMemoryProtected:     "user memory protected",
	EndAbortedFCS:          "aborted due to FCS error in transmit data",
	EndAbortedFormat:       "aborted due to format error in transmit data",
	EndAbortedEntryData:    "aborted due to entry number data error in transmit data",
	EndAbortedFrameLength:  "aborted due to frame length error in transmit data",
}

// OK reports whether c is the normal completion code.
func (c EndCode) OK() bool {
	return c == EndNormal
}

// String returns the code and its description.
func (c EndCode) String() string {
	if name, ok := endCodeNames[c]; ok {
		return fmt.Sprintf("%s (%s)", string(c), name)
	}
	return fmt.Sprintf("%s (unknown end code)", string(c))
}

// EndCodeError reports a response whose end code is not normal completion.
type EndCodeError struct {
	Header string
	Code   EndCode
}

// Error implements the error interface
func (e *EndCodeError) Error() string {
	return fmt.Sprintf("hostlink: %s response: end code %s", e.Header, e.Code)
}

// EndCode returns the end code that opens the parameter block. It reports
// false when the block is shorter than an end code.
//
// TEST responses echo their data and carry no end code.
func (m Message) EndCode() (EndCode, bool) {
	if len(m.params) < EndCodeSize {
		return "", false
	}
	return EndCode(m.params[:EndCodeSize]), true
}

// CheckEndCode returns an *EndCodeError when m carries an end code other than
// normal completion, or nil.
func CheckEndCode(m Message) error {
	code, ok := m.EndCode()
	if !ok || code.OK() {
		return nil
	}
	return &EndCodeError{Header: m.Header(), Code: code}
}

// AreaWordSize is the number of hex digits per word in an area read response.
const AreaWordSize = 4

// DecodeAreaWords decodes the word data of an area read response (RR, RL,
// RH, RC, RG, RD or RJ).
func DecodeAreaWords(m Message) ([]uint16, error) {
	code, ok := m.EndCode()
	if !ok {
		return nil, fmt.Errorf("hostlink: %s response has no end code", m.Header())
	}
	if !code.OK() {
		return nil, &EndCodeError{Header: m.Header(), Code: code}
	}

	data := m.params[EndCodeSize:]
	if len(data)%AreaWordSize != 0 {
		return nil, fmt.Errorf("hostlink: %s response data is %d characters, not a multiple of %d",
			m.Header(), len(data), AreaWordSize)
	}

	words := make([]uint16, 0, len(data)/AreaWordSize)
	for i := 0; i < len(data); i += AreaWordSize {
		hi, ok1 := parseHexByte(data[i:])
		lo, ok2 := parseHexByte(data[i+2:])
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("hostlink: %s response word %q is not hex",
				m.Header(), data[i:i+AreaWordSize])
		}
		words = append(words, uint16(hi)<<8|uint16(lo))
	}
	return words, nil
}
