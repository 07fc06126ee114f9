//go:build !unix

package credentials

// Non-Unix builds only get the in-process mutex.
func lockPath(string) (func(), error) {
	return func() {}, nil
}
