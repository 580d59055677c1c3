// Command myba implements the dual-repository encrypted backup tool
// (spec.md, component overview): a plain content-addressed git history
// in P, mirrored commit-by-commit into a password-encrypted, syncable
// git history in E.
package main

func main() {
	Execute()
}
