package api

import (
	"github.com/clearcase/worker/internal/assets"
	"github.com/clearcase/worker/internal/audit"
	"github.com/clearcase/worker/internal/reminders"
)

// Domain holds the systems exposed through the API.
type Domain struct {
	Assets    assets.System
	Audit     audit.System
	Reminders reminders.Store
}

// NewDomain creates the domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	return &Domain{
		Assets:    assets.New(db, runtime.Logger),
		Audit:     audit.New(db, runtime.Logger, runtime.Pagination),
		Reminders: reminders.NewStore(db, runtime.Logger, runtime.Pagination),
	}
}
