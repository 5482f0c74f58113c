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

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// lockFileName is the advisory whole-directory exclusion file. It is never
// read for content; its sole purpose is to hold an exclusive flock for the
// lifetime of an open Tree (spec.md §5).
const lockFileName = "urkel.lock"

// dirLock wraps the advisory lock held on a data directory.
type dirLock struct {
	f *os.File
}

// acquireDirLock opens (creating if necessary) dir/urkel.lock and takes a
// non-blocking exclusive flock on it. A second Open of the same directory,
// from this or another process, fails with ErrLocked.
func acquireDirLock(dir string) (*dirLock, error) {
	path := dir + string(os.PathSeparator) + lockFileName
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("urkel: open lock file: %w", err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("urkel: flock: %w", err)
	}

	return &dirLock{f: f}, nil
}

// release drops the flock and closes the lock file handle. It is safe to
// call once, on Tree.Close.
func (l *dirLock) release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
