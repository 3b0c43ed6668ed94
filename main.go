// Public domain.

package main

import "github.com/gkligo/gwmoc/internal/mocprog"

func main() {
	mocprog.Main()
}
