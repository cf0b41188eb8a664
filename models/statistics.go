package models

import "time"

// Statistics is the singleton aggregate record, recomputed and
// overwritten on every certificate list load.
type Statistics struct {
	Total       int       `json:"total"`
	Active      int       `json:"active"`
	Expiring    int       `json:"expiring"`
	LastUpdated time.Time `json:"last_updated"`
}
