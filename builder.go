package cardinal

import (
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Builder configures and bootstraps a Registry.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	opts    []Option
	hosts   []func(*Registry) error
	plugins []*Plugin
}

// NewBuilder creates a new registry builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Config sets the registry configuration.
func (b *Builder) Config(cfg Config) *Builder {
	b.opts = append(b.opts, WithConfig(cfg))
	return b
}

// Logger sets the registry logger.
func (b *Builder) Logger(l *slog.Logger) *Builder {
	b.opts = append(b.opts, WithLogger(l))
	return b
}

// Metrics attaches prometheus collectors to the registry.
func (b *Builder) Metrics(m *Metrics) *Builder {
	b.opts = append(b.opts, WithMetrics(m))
	return b
}

// OwnerTypes adds a host callback declaring owner types. Host callbacks run
// sequentially before any plugin.
//
// Example:
//
//	builder.OwnerTypes(func(r *cardinal.Registry) error {
//	    entity := r.MustDeclareOwnerType("entity", nil)
//	    r.MustDeclareOwnerType("player", entity)
//	    return nil
//	})
func (b *Builder) OwnerTypes(fn func(*Registry) error) *Builder {
	b.hosts = append(b.hosts, fn)
	return b
}

// Plugin adds a plugin to the builder.
func (b *Builder) Plugin(p *Plugin) *Builder {
	b.plugins = append(b.plugins, p)
	return b
}

// Build bootstraps and freezes a new registry.
//
// Plugins bootstrap concurrently. The first bootstrap error aborts the build
// and no registry is returned: a partially registered registry must never
// serve.
func (b *Builder) Build() (*Registry, error) {
	r := NewRegistry(b.opts...)
	if err := r.BeginBootstrap(); err != nil {
		return nil, err
	}

	for _, fn := range b.hosts {
		if err := fn(r); err != nil {
			return nil, fmt.Errorf("declare owner types: %w", err)
		}
	}

	var g errgroup.Group
	for i, p := range b.plugins {
		bs := r.Bootstrap(p.name, i+1)
		g.Go(func() error {
			for _, fn := range p.inits {
				if err := fn(bs); err != nil {
					return fmt.Errorf("plugin %s: %w", p.name, err)
				}
			}
			r.log.Debug("cardinal: plugin bootstrapped", "plugin", p.name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.log.Error("cardinal: bootstrap aborted", "error", err)
		return nil, err
	}

	if err := r.Freeze(); err != nil {
		return nil, err
	}
	return r, nil
}

// Init is like Build but panics if bootstrap fails.
func (b *Builder) Init() *Registry {
	r, err := b.Build()
	if err != nil {
		panic("cardinal: failed to bootstrap: " + err.Error())
	}
	return r
}
