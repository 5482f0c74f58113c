// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package urkel

import "fmt"

const (
	// KeyBits is the width, in bits, of every key (spec.md §3: "256-bit
	// keys"). It tracks DigestSize, the hash function's own output width,
	// rather than an Options field: a key is the thing a node's hash
	// commits to bit-by-bit, so changing it means changing the hash
	// function, not tuning a knob.
	KeyBits = DigestSize * 8

	// DefaultMaxValueSize is the value-size ceiling Options.MaxValueSize
	// falls back to when left zero (spec.md §3).
	DefaultMaxValueSize = 0xffff

	// DefaultMaxFileSize is the append-only rotation threshold
	// Options.MaxFileSize falls back to when left zero: a write that
	// would push a data file past this size instead rolls over to the
	// next-numbered file (spec.md §4.E).
	DefaultMaxFileSize = 0x7fff_f000

	// DefaultRecoveryWindowSize is the backward-scan window
	// Options.RecoveryWindowSize falls back to when left zero: how much
	// of a data file recoverMeta reads into memory at once while scanning
	// backward for the most recent valid meta-record (spec.md §4.E
	// "Recovery").
	DefaultRecoveryWindowSize = 1 << 20 // 1 MiB

	// defaultBufferCap is the initial capacity of a Store's write buffer;
	// purely a sizing hint, not a limit.
	defaultBufferCap = 8 * 1024
)

// Options configures a Tree at Open time. The zero value is valid: every
// tunable left unset falls back to its Default* constant above. It is
// exposed as a Go struct, not environment variables or a config file,
// since spec.md §6 scopes this store to a library contract with no
// external configuration surface (mirroring the teacher's TreeConfig
// pattern of named constants plus a plain struct literal).
type Options struct {
	// ReadOnly opens the store without acquiring the directory lock and
	// disables Insert/Commit. Used by cmd/urkel-recover.
	ReadOnly bool

	// MaxValueSize is the largest value, in bytes, Insert will accept.
	// Zero means DefaultMaxValueSize. A value's locator stores its size
	// in a 16-bit field on disk (spec.md §4.D), so this must not exceed
	// 0xffff.
	MaxValueSize uint32

	// MaxFileSize is the append-only rotation threshold (spec.md §4.E).
	// Zero means DefaultMaxFileSize.
	MaxFileSize uint64

	// RecoveryWindowSize bounds recoverMeta's backward-scan read size
	// (spec.md §4.E "Recovery"). Zero means DefaultRecoveryWindowSize.
	RecoveryWindowSize uint32
}

// resolved fills unset fields with their defaults and validates the
// result, returning the effective tunables a Store/Tree actually uses.
func (o Options) resolved() (Options, error) {
	r := o
	if r.MaxValueSize == 0 {
		r.MaxValueSize = DefaultMaxValueSize
	}
	if r.MaxValueSize > 0xffff {
		return Options{}, fmt.Errorf("urkel: MaxValueSize %d exceeds the 16-bit value locator field", r.MaxValueSize)
	}
	if r.MaxFileSize == 0 {
		r.MaxFileSize = DefaultMaxFileSize
	}
	if r.RecoveryWindowSize == 0 {
		r.RecoveryWindowSize = DefaultRecoveryWindowSize
	}
	return r, nil
}
