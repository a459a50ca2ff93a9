package stfl

import (
	"encoding/binary"
	goLog "log"
)

// Encodes the given uint64 into the buffer out in Big Endian
func encodeUint64Into(x uint64, out []byte) {
	if len(out)%8 == 0 {
		binary.BigEndian.PutUint64(out[len(out)-8:], x)
		for i := 0; i < len(out)-8; i += 8 {
			binary.BigEndian.PutUint64(out[i:i+8], 0)
		}
	} else {
		for i := len(out) - 1; i >= 0; i-- {
			out[i] = byte(x)
			x >>= 8
		}
	}
}

// Encodes the given uint64 as [outLen]byte in Big Endian.
func encodeUint64(x uint64, outLen int) []byte {
	ret := make([]byte, outLen)
	encodeUint64Into(x, ret)
	return ret
}

// Interpret []byte as Big Endian int.
func decodeUint64(in []byte) (ret uint64) {
	for i := 0; i < len(in); i++ {
		ret |= uint64(in[i]) << uint64(8*(len(in)-1-i))
	}
	return
}

// Overwrites the buffer with zeros.
func zeroBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
}

type Logger interface {
	Logf(format string, a ...interface{})
}

type dummyLogger struct{}
type stdlibLogger struct{}

func (logger *dummyLogger) Logf(format string, a ...interface{}) {}

func (logger *stdlibLogger) Logf(format string, a ...interface{}) {
	goLog.Printf(format, a...)
}

var log Logger = &dummyLogger{}

// Enables logging to log package.  For more flexibility, see SetLogger().
func EnableLogging() {
	SetLogger(&stdlibLogger{})
}

// Enables logging.  Disable logging by passing nil.
//
// Use EnableLogging if you want to log to the log package.
func SetLogger(logger Logger) {
	if logger == nil {
		log = &dummyLogger{}
		return
	}
	log = logger
}
