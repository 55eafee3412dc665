package port

type Metrics interface {
	CacheHit()
	CacheMiss()
	CacheError(op string)
	AuthFailure(reason string)
}

type NopMetrics struct{}

func (NopMetrics) CacheHit()          {}
func (NopMetrics) CacheMiss()         {}
func (NopMetrics) CacheError(string)  {}
func (NopMetrics) AuthFailure(string) {}
