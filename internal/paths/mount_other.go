//go:build !unix

package paths

import "os"

func sameDevice(_, _ os.FileInfo) bool {
	return true
}
