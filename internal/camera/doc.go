// Package camera supplies still frames to a capture session.
//
// FFmpegCamera grabs single frames from a V4L2 device through ffmpeg and
// can flip between an environment-facing and a user-facing device.
// FileCamera replays a directory of still images, which is how batch
// workflows and tests drive a session without hardware. Watcher reports
// video4linux hotplug events from udev so the session can tell the user
// when a camera appears or disappears.
package camera
