package postal

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/postal/engine/enginetest"
	"github.com/wippyai/postal/errors"
	"github.com/wippyai/postal/resource"
)

func newTestContext(t *testing.T, fake *enginetest.Engine, opts InitOptions) *Context {
	t.Helper()
	c := NewWithEngine(fake)
	require.NoError(t, c.Init(opts))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNew_MakesNoNativeCalls(t *testing.T) {
	fake := enginetest.New()
	c := NewWithEngine(fake)

	assert.False(t, c.Ready())
	assert.False(t, c.ExpandEnabled())
	assert.False(t, c.ParseEnabled())
	assert.NotEmpty(t, c.ID())
	assert.Empty(t, fake.Calls())
}

func TestInit_Capabilities(t *testing.T) {
	tests := []struct {
		name   string
		opts   InitOptions
		expand bool
		parse  bool
		calls  []string
	}{
		{
			name:   "expand only",
			opts:   InitOptions{Expand: true},
			expand: true,
			calls:  []string{enginetest.CallSetup, enginetest.CallSetupLanguageClassifier},
		},
		{
			name:  "parse only",
			opts:  InitOptions{Parse: true},
			parse: true,
			calls: []string{enginetest.CallSetup, enginetest.CallSetupParser},
		},
		{
			name:   "both",
			opts:   InitOptions{Expand: true, Parse: true},
			expand: true,
			parse:  true,
			calls: []string{
				enginetest.CallSetup,
				enginetest.CallSetupLanguageClassifier,
				enginetest.CallSetupParser,
			},
		},
		{
			name:  "base only",
			opts:  InitOptions{},
			calls: []string{enginetest.CallSetup},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := enginetest.New()
			c := newTestContext(t, fake, tt.opts)

			assert.True(t, c.Ready())
			assert.Equal(t, tt.expand, c.ExpandEnabled())
			assert.Equal(t, tt.parse, c.ParseEnabled())
			assert.Equal(t, tt.calls, fake.Calls())
		})
	}
}

func TestInit_DataDirPassthrough(t *testing.T) {
	fake := enginetest.New()
	newTestContext(t, fake, InitOptions{Expand: true, Parse: true, DataDir: "/opt/libpostal"})

	assert.Equal(t, []string{"/opt/libpostal", "/opt/libpostal", "/opt/libpostal"}, fake.DataDirs())
}

func TestInit_SetupFailure(t *testing.T) {
	fake := enginetest.New()
	fake.FailSetup = true
	c := NewWithEngine(fake)

	err := c.Init(InitOptions{Expand: true, Parse: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrSetup)
	assert.False(t, c.Ready())
	assert.Equal(t, []string{enginetest.CallSetup}, fake.Calls())

	// The claim is released, so another context may try.
	fake.FailSetup = false
	other := NewWithEngine(fake)
	require.NoError(t, other.Init(InitOptions{Expand: true}))
	require.NoError(t, other.Close())
	require.NoError(t, c.Close())
}

func TestInit_CapabilityFailure(t *testing.T) {
	t.Run("expand", func(t *testing.T) {
		fake := enginetest.New()
		fake.FailLanguageClassifier = true
		c := NewWithEngine(fake)

		err := c.Init(InitOptions{Expand: true, Parse: true})
		assert.ErrorIs(t, err, errors.ErrEnableExpansion)
		assert.NotErrorIs(t, err, errors.ErrEnableParsing)
		assert.True(t, c.Ready())
		assert.False(t, c.ExpandEnabled())
		assert.False(t, c.ParseEnabled())
		assert.Zero(t, fake.Count(enginetest.CallSetupParser))

		require.NoError(t, c.Close())
		assert.Equal(t, 1, fake.Count(enginetest.CallTeardown))
		assert.Zero(t, fake.Count(enginetest.CallTeardownLanguageClassifier))
		assert.Zero(t, fake.Count(enginetest.CallTeardownParser))
	})

	t.Run("parse", func(t *testing.T) {
		fake := enginetest.New()
		fake.FailParser = true
		c := NewWithEngine(fake)

		err := c.Init(InitOptions{Expand: true, Parse: true})
		assert.ErrorIs(t, err, errors.ErrEnableParsing)
		assert.True(t, c.ExpandEnabled())
		assert.False(t, c.ParseEnabled())

		require.NoError(t, c.Close())
		assert.Equal(t, 1, fake.Count(enginetest.CallTeardownLanguageClassifier))
		assert.Equal(t, 1, fake.Count(enginetest.CallTeardown))
		assert.Zero(t, fake.Count(enginetest.CallTeardownParser))
	})
}

func TestInit_Twice(t *testing.T) {
	fake := enginetest.New()
	c := newTestContext(t, fake, InitOptions{Expand: true})

	err := c.Init(InitOptions{Parse: true})
	assert.ErrorIs(t, err, errors.ErrBusy)
	assert.Equal(t, 1, fake.Count(enginetest.CallSetup))
	assert.False(t, c.ParseEnabled())
}

func TestInit_SecondContextBusy(t *testing.T) {
	fake := enginetest.New()
	first := newTestContext(t, fake, InitOptions{Expand: true})

	second := NewWithEngine(fake)
	err := second.Init(InitOptions{Expand: true})
	assert.ErrorIs(t, err, errors.ErrBusy)
	assert.Equal(t, 1, fake.Count(enginetest.CallSetup))

	require.NoError(t, first.Close())
	require.NoError(t, second.Init(InitOptions{Expand: true}))
	require.NoError(t, second.Close())
}

func TestInit_AfterClose(t *testing.T) {
	fake := enginetest.New()
	c := NewWithEngine(fake)
	require.NoError(t, c.Close())

	err := c.Init(InitOptions{Expand: true})
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.Empty(t, fake.Calls())
}

func TestClose_TeardownMatchesSetup(t *testing.T) {
	tests := []struct {
		name  string
		opts  InitOptions
		calls []string
	}{
		{
			name:  "expand",
			opts:  InitOptions{Expand: true},
			calls: []string{enginetest.CallTeardownLanguageClassifier, enginetest.CallTeardown},
		},
		{
			name:  "parse",
			opts:  InitOptions{Parse: true},
			calls: []string{enginetest.CallTeardownParser, enginetest.CallTeardown},
		},
		{
			name: "both",
			opts: InitOptions{Expand: true, Parse: true},
			calls: []string{
				enginetest.CallTeardownParser,
				enginetest.CallTeardownLanguageClassifier,
				enginetest.CallTeardown,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := enginetest.New()
			c := NewWithEngine(fake)
			require.NoError(t, c.Init(tt.opts))
			setupCalls := len(fake.Calls())

			require.NoError(t, c.Close())
			assert.Equal(t, tt.calls, fake.Calls()[setupCalls:])

			// Parser setup is never called again from teardown.
			parserSetups := 0
			if tt.opts.Parse {
				parserSetups = 1
			}
			assert.Equal(t, parserSetups, fake.Count(enginetest.CallSetupParser))

			// Idempotent.
			require.NoError(t, c.Close())
			assert.Len(t, fake.Calls(), setupCalls+len(tt.calls))
			assert.False(t, c.Ready())
		})
	}
}

func TestClose_Uninitialized(t *testing.T) {
	fake := enginetest.New()
	c := NewWithEngine(fake)
	require.NoError(t, c.Close())
	assert.Empty(t, fake.Calls())
}

func TestQuery_NotReady(t *testing.T) {
	t.Run("expand only context rejects parse", func(t *testing.T) {
		fake := enginetest.New()
		c := newTestContext(t, fake, InitOptions{Expand: true})

		for _, text := range []string{"", "1234 Main St", "東京都"} {
			comps, err := c.ParseAddress(text, nil)
			assert.Nil(t, comps)
			assert.ErrorIs(t, err, errors.ErrNotReady)
		}
		assert.Zero(t, fake.Count(enginetest.CallParseAddress))
	})

	t.Run("parse only context rejects expand", func(t *testing.T) {
		fake := enginetest.New()
		c := newTestContext(t, fake, InitOptions{Parse: true})

		exps, err := c.ExpandAddress("1234 Main St", nil)
		assert.Nil(t, exps)
		assert.ErrorIs(t, err, errors.ErrNotReady)

		var perr *errors.Error
		require.True(t, stderrors.As(err, &perr))
		assert.Equal(t, errors.CapabilityExpand, perr.Capability)
		assert.Zero(t, fake.Count(enginetest.CallExpandAddress))
	})

	t.Run("uninitialized", func(t *testing.T) {
		fake := enginetest.New()
		c := NewWithEngine(fake)

		_, err := c.ExpandAddress("x", nil)
		assert.ErrorIs(t, err, errors.ErrNotReady)
		_, err = c.ParseAddress("x", nil)
		assert.ErrorIs(t, err, errors.ErrNotReady)
		assert.Empty(t, fake.Calls())
	})
}

func TestQuery_NulByte(t *testing.T) {
	inits := map[string]*InitOptions{
		"uninitialized": nil,
		"expand":        {Expand: true},
		"parse":         {Parse: true},
		"both":          {Expand: true, Parse: true},
	}

	for name, opts := range inits {
		t.Run(name, func(t *testing.T) {
			fake := enginetest.New()
			c := NewWithEngine(fake)
			if opts != nil {
				require.NoError(t, c.Init(*opts))
			}
			defer c.Close()
			before := len(fake.Calls())

			_, err := c.ExpandAddress("1234\x00Main", nil)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)
			_, err = c.ParseAddress("\x00", nil)
			assert.ErrorIs(t, err, errors.ErrInvalidInput)

			assert.Len(t, fake.Calls(), before)
		})
	}
}

func TestQuery_AfterClose(t *testing.T) {
	fake := enginetest.New()
	c := NewWithEngine(fake)
	require.NoError(t, c.Init(InitOptions{Expand: true, Parse: true}))
	require.NoError(t, c.Close())

	_, err := c.ExpandAddress("x", nil)
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = c.ParseAddress("x", nil)
	assert.ErrorIs(t, err, errors.ErrClosed)
	assert.Zero(t, fake.Count(enginetest.CallExpandAddress))
}

func TestExpandAddress_Options(t *testing.T) {
	fake := enginetest.New()
	c := newTestContext(t, fake, InitOptions{Expand: true})

	opts := c.DefaultExpandOptions()
	assert.Equal(t, enginetest.DefaultNormalizeOptions, opts.Normalize)
	opts.Normalize.Lowercase = false
	require.NoError(t, opts.SetLanguages("FR", " de "))

	exps, err := c.ExpandAddress("x", opts)
	require.NoError(t, err)
	require.NoError(t, exps.Close())

	assert.Equal(t, []string{"fr", "de"}, fake.LastLanguages())
	assert.False(t, fake.LastNormalizeOptions().Lowercase)

	// Options are reusable after the call.
	require.NoError(t, opts.SetLanguages("en"))
	exps, err = c.ExpandAddress("x", opts)
	require.NoError(t, err)
	require.NoError(t, exps.Close())
	assert.Equal(t, []string{"en"}, fake.LastLanguages())

	exps, err = c.ExpandAddress("x", nil)
	require.NoError(t, err)
	require.NoError(t, exps.Close())
	assert.Empty(t, fake.LastLanguages())
}

func TestExpand_Convenience(t *testing.T) {
	fake := enginetest.New()
	fake.SetExpansions("1234 Cherry Ln", "1234 cherry lane", "1234 cherry line")
	c := newTestContext(t, fake, InitOptions{Expand: true})

	got, err := c.Expand("1234 Cherry Ln", "en")
	require.NoError(t, err)
	assert.Equal(t, []string{"1234 cherry lane", "1234 cherry line"}, got)
	assert.Equal(t, []string{"en"}, fake.LastLanguages())
	assert.Zero(t, c.Live())
	assert.Zero(t, fake.Live())

	_, err = c.Expand("x", "f\x00r")
	assert.ErrorIs(t, err, errors.ErrInvalidInput)
}

func TestParse_Convenience(t *testing.T) {
	fake := enginetest.New()
	fake.SetComponents("1234 Main St, Podunk TX 55555",
		"house_number", "1234",
		"road", "main st",
		"city", "podunk",
		"state", "tx",
		"postcode", "55555",
	)
	c := newTestContext(t, fake, InitOptions{Parse: true})

	got, err := c.Parse("1234 Main St, Podunk TX 55555")
	require.NoError(t, err)
	assert.Equal(t, []Component{
		{Label: "house_number", Value: "1234"},
		{Label: "road", Value: "main st"},
		{Label: "city", Value: "podunk"},
		{Label: "state", Value: "tx"},
		{Label: "postcode", Value: "55555"},
	}, got)
	assert.Zero(t, fake.Live())
}

func TestClose_ReleasesOutstandingResults(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	fake := enginetest.New()
	fake.SetExpansions("a", "one", "two", "three")
	fake.SetComponents("b", "road", "main st")

	c := NewWithEngine(fake, WithLogger(zap.New(core)))
	require.NoError(t, c.Init(InitOptions{Expand: true, Parse: true}))

	var released []resource.Kind
	c.Subscribe(resource.ObserverFunc(func(e resource.Event) {
		if e.Type == resource.EventReleased {
			released = append(released, e.Kind)
		}
	}))

	exps, err := c.ExpandAddress("a", nil)
	require.NoError(t, err)
	require.True(t, exps.Next())
	assert.Equal(t, "one", exps.Value())

	comps, err := c.ParseAddress("b", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Live())

	require.NoError(t, c.Close())
	assert.Equal(t, 2, fake.Destroyed())
	assert.Zero(t, fake.DoubleFrees())
	assert.ElementsMatch(t, []resource.Kind{resource.KindExpansions, resource.KindComponents}, released)
	warned := logs.FilterMessage("released outstanding results on close").All()
	require.Len(t, warned, 1)
	fields := warned[0].ContextMap()
	assert.EqualValues(t, 2, fields["count"])
	assert.EqualValues(t, 1, fields["expansions"])
	assert.EqualValues(t, 1, fields["components"])

	// Destroys happen before teardown.
	calls := fake.Calls()
	assert.Equal(t, enginetest.CallTeardown, calls[len(calls)-1])

	// Views report the context close and never touch freed memory.
	assert.False(t, exps.Next())
	assert.ErrorIs(t, exps.Err(), errors.ErrClosed)
	assert.False(t, comps.Next())
	assert.ErrorIs(t, comps.Err(), errors.ErrClosed)

	require.NoError(t, exps.Close())
	require.NoError(t, comps.Close())
	assert.Equal(t, 2, fake.Destroyed())
	assert.Zero(t, fake.DoubleFrees())
}

func TestConcurrentQueriesAreSerialized(t *testing.T) {
	fake := enginetest.New()
	fake.Delay = time.Millisecond
	fake.SetExpansions("a", "x", "y")
	fake.SetComponents("b", "road", "main st")
	c := newTestContext(t, fake, InitOptions{Expand: true, Parse: true})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			got, err := c.Expand("a")
			assert.NoError(t, err)
			assert.Equal(t, []string{"x", "y"}, got)
		}()
		go func() {
			defer wg.Done()
			got, err := c.Parse("b")
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, fake.MaxInFlight())
	assert.Equal(t, 32, fake.Destroyed())
	assert.Zero(t, fake.DoubleFrees())
	assert.Zero(t, c.Live())
}

func TestConcurrentCloseWithQueries(t *testing.T) {
	fake := enginetest.New()
	fake.SetExpansions("a", "x")
	c := NewWithEngine(fake)
	require.NoError(t, c.Init(InitOptions{Expand: true}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			exps, err := c.ExpandAddress("a", nil)
			if err != nil {
				assert.ErrorIs(t, err, errors.ErrClosed)
				return
			}
			for exps.Next() {
			}
			_ = exps.Close()
		}()
	}
	require.NoError(t, c.Close())
	wg.Wait()

	assert.Equal(t, 1, fake.MaxInFlight())
	assert.Zero(t, fake.Live())
	assert.Zero(t, fake.DoubleFrees())
}
