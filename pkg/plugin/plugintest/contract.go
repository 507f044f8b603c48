// Package plugintest provides shared contract tests for plugin.Plugin
// implementations. Every service's test file calls TestPluginContract.
package plugintest

import (
	"context"
	"strings"
	"testing"

	"github.com/HerbHall/studyforge/pkg/plugin"
	"go.uber.org/zap"
)

// TestPluginContract runs the behavioral contract suite against a plugin:
//
//	func TestContract(t *testing.T) {
//	    plugintest.TestPluginContract(t, func() plugin.Plugin { return quiz.New() })
//	}
//
// Plugins receive only a logger here, so Init must tolerate nil Config,
// Bus, Store and Plugins.
func TestPluginContract(t *testing.T, factory func() plugin.Plugin) {
	t.Helper()

	t.Run("Info_returns_valid_metadata", func(t *testing.T) {
		info := factory().Info()
		if info.Name == "" {
			t.Error("Info().Name must not be empty")
		}
		if info.Version == "" {
			t.Error("Info().Version must not be empty")
		}
		if info.APIVersion < plugin.APIVersionMin || info.APIVersion > plugin.APIVersionCurrent {
			t.Errorf("Info().APIVersion = %d, outside [%d,%d]", info.APIVersion, plugin.APIVersionMin, plugin.APIVersionCurrent)
		}
	})

	t.Run("Init_succeeds_with_minimal_deps", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), testDeps(p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
	})

	t.Run("Start_then_Stop", func(t *testing.T) {
		p := factory()
		if err := p.Init(context.Background(), testDeps(p.Info().Name)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if err := p.Start(context.Background()); err != nil {
			t.Fatalf("Start() error = %v", err)
		}
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
	})

	t.Run("Stop_without_Start", func(t *testing.T) {
		p := factory()
		_ = p.Init(context.Background(), testDeps(p.Info().Name))
		if err := p.Stop(context.Background()); err != nil {
			t.Fatalf("Stop() without Start error = %v", err)
		}
	})

	t.Run("Routes_are_well_formed", func(t *testing.T) {
		p := factory()
		hp, ok := p.(plugin.HTTPProvider)
		if !ok {
			t.Skip("plugin exposes no routes")
		}
		_ = p.Init(context.Background(), testDeps(p.Info().Name))
		for _, r := range hp.Routes() {
			if r.Method == "" || (r.Path != "" && !strings.HasPrefix(r.Path, "/")) || r.Handler == nil {
				t.Errorf("malformed route %s %q", r.Method, r.Path)
			}
		}
	})
}

func testDeps(name string) plugin.Dependencies {
	return plugin.Dependencies{Logger: zap.NewNop().Named(name)}
}
