//go:build !unix

package matcache

// lockFile is a no-op here; concurrent writers from different processes are
// not serialized and a single writer is assumed.
func lockFile(string) (func(), error) {
	return func() {}, nil
}
