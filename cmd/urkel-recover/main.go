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

// Command urkel-recover opens a data directory read-only, replays its most
// recent valid meta-record, and prints the recovered root. It never
// acquires the directory's write lock, so it is safe to run against a
// directory another process has open.
package main

import (
	"fmt"
	"os"

	"github.com/urkeldb/urkel"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <data-dir>\n", os.Args[0])
		os.Exit(2)
	}
	dir := os.Args[1]

	tree, err := urkel.Open(dir, urkel.Options{ReadOnly: true})
	if err != nil {
		fmt.Fprintf(os.Stderr, "urkel-recover: %v\n", err)
		os.Exit(1)
	}
	defer tree.Close()

	root := tree.GetRoot()
	if root.IsZero() {
		fmt.Println("empty tree: no committed root found")
		return
	}
	fmt.Printf("root: %s\n", root)
}
