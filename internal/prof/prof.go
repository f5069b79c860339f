// Package prof starts continuous profiling with Pyroscope.
package prof

import (
	"context"
	"net/url"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/jslearn-web/internal/log"
	"github.com/keithlinneman/jslearn-web/internal/xerrors"
)

type Options struct {
	Enabled              bool
	AppName              string
	ServerAddress        string
	TenantID             string
	Tags                 map[string]string
	ProfileMutexFraction int
	BlockProfileRate     int
}

// profileTypes are collected on every run. Mutex and block profiles only
// carry data when the matching runtime rates are set.
var profileTypes = []pyroscope.ProfileType{
	pyroscope.ProfileCPU,
	pyroscope.ProfileAllocObjects,
	pyroscope.ProfileAllocSpace,
	pyroscope.ProfileInuseObjects,
	pyroscope.ProfileInuseSpace,
	pyroscope.ProfileGoroutines,
	pyroscope.ProfileMutexCount,
	pyroscope.ProfileMutexDuration,
	pyroscope.ProfileBlockCount,
	pyroscope.ProfileBlockDuration,
}

func (o Options) validate() error {
	if o.ServerAddress == "" {
		return xerrors.New("pyroscope server address is required")
	}
	u, err := url.Parse(o.ServerAddress)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return xerrors.Newf("invalid pyroscope server address %q", o.ServerAddress)
	}
	if o.AppName == "" {
		return xerrors.New("pyroscope app name is required")
	}
	return nil
}

// Start begins profiling when enabled. The returned stop func is always
// safe to call, more than once.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	noop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		return noop, nil
	}
	if err := opts.validate(); err != nil {
		return noop, err
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes,
	})
	if err != nil {
		return noop, xerrors.Wrapf(err, "start pyroscope (server=%s)", opts.ServerAddress)
	}

	L.Info(ctx, "pyroscope started", "server_address", opts.ServerAddress, "app_name", opts.AppName)

	var once sync.Once
	return func() {
		once.Do(func() {
			profiler.Stop()
			L.Info(context.Background(), "pyroscope stopped", "app_name", opts.AppName)
		})
	}, nil
}
