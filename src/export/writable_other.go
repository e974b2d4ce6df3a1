//go:build !unix

package export

// checkWritable is a no-op here; the temp file creation reports failures.
func checkWritable(dir string) error {
	return nil
}
