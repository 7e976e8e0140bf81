package controller

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/core/store/kv"
	"go.ezyvote.org/ezyvote/internal/config"
	"go.ezyvote.org/ezyvote/internal/testing/fake"
)

func TestController_OnStart_OnStop(t *testing.T) {
	ctrl := NewController()
	ctrl.SetCommands(nil)

	inj := node.NewInjector()
	inj.Inject(config.Default())

	flags := node.FlagSet{node.ConfigFlag: t.TempDir()}

	err := ctrl.OnStart(flags, inj)
	require.NoError(t, err)

	var db kv.DB
	require.NoError(t, inj.Resolve(&db))

	err = ctrl.OnStop(inj)
	require.NoError(t, err)
}

func TestController_OnStart_Failures(t *testing.T) {
	ctrl := dbController{open: badOpen}

	inj := node.NewInjector()

	err := ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err,
		"injector: couldn't find dependency for 'config.Config'")

	inj.Inject(config.Default())

	err = ctrl.OnStart(node.FlagSet{}, inj)
	require.EqualError(t, err, fake.Err("db"))

	err = ctrl.OnStop(inj)
	require.EqualError(t, err, "injector: couldn't find dependency for 'kv.DB'")
}

func badOpen(string) (kv.DB, error) {
	return nil, fake.GetError()
}
