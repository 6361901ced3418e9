package streaming

import "github.com/AvishakeAdhikary/NexRemote/internal/dispatch"

// Register binds screen_share, camera, and media_control to this
// Service's handlers. screen_share is mixed (list_displays is cheap,
// start/stop touch the capture manager) but its own work is in-memory
// bookkeeping plus goroutine spawns, so it runs inline like the other
// control-plane messages; camera and media_control block on device/COM
// I/O and are offloaded to the worker pool.
func (s *Service) Register(router *dispatch.Router) {
	router.Register("screen_share", false, s.HandleScreenShare)
	router.Register("camera", true, s.HandleCamera)
	router.Register("media_control", true, s.HandleMediaControl)
}
