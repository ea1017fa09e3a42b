package launcher

import "strings"

// Placeholder tokens recognized in application commands.
const (
	BlockDevicePlaceholder = "{:blkdev-path:}"
	MountPathPlaceholder   = "{:mount-path:}"
)

// Expand substitutes the block device and mount path into a command template.
// Unrecognized {:...:} tokens are left as they are.
func Expand(template, blockDevice, mountPath string) string {
	return strings.NewReplacer(
		BlockDevicePlaceholder, blockDevice,
		MountPathPlaceholder, mountPath,
	).Replace(template)
}
