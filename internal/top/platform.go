package top

// Platform is a structural placeholder for a direct platform connection
// (distinct from a platform reached indirectly via Uhost forwarding). The
// original never implements a concrete transport for it either. Manager
// gates it on its connection status like Device and Uhost, but that status
// stays NotInitialized, so Manager never polls it or sends to it; the
// placeholder itself never has data and never accepts any.
type Platform struct{}

// NewPlatform returns an inert placeholder connection.
func NewPlatform() *Platform {
	return &Platform{}
}

func (p *Platform) Receive() (body []byte, ok bool) {
	return nil, false
}

func (p *Platform) Send(body []byte) bool {
	return false
}

func (p *Platform) Stop() {}
