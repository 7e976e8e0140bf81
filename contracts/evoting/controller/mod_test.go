package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"go.ezyvote.org/ezyvote/cli"
	"go.ezyvote.org/ezyvote/cli/node"
	"go.ezyvote.org/ezyvote/contracts/evoting"
	"go.ezyvote.org/ezyvote/contracts/evoting/types"
	"go.ezyvote.org/ezyvote/core/access/wallet"
	"go.ezyvote.org/ezyvote/core/execution"
	"go.ezyvote.org/ezyvote/core/ordering"
	"go.ezyvote.org/ezyvote/core/store/kv"
	serialcontroller "go.ezyvote.org/ezyvote/core/ordering/serial/controller"
	"go.ezyvote.org/ezyvote/internal/config"
	"go.ezyvote.org/ezyvote/proxy"
	proxyhttp "go.ezyvote.org/ezyvote/proxy/http"
)

func TestController_SetCommands(t *testing.T) {
	builder := &fakeBuilder{}
	NewController().SetCommands(builder)

	require.Equal(t, []string{"evoting"}, builder.commands)
	require.Equal(t, []string{
		"create", "vote", "deactivate", "show", "count", "voted", "whitelisted", "watch",
	}, builder.subcommands)
}

func TestController_OnStart(t *testing.T) {
	owner := newSigner(t)

	inj, router := newInjector(t, owner.GetAddress().String())

	ctrl := NewController()

	require.NoError(t, ctrl.OnStart(make(node.FlagSet), inj))

	var contract evoting.Contract
	require.NoError(t, inj.Resolve(&contract))
	require.Equal(t, evoting.ContractUID, contract.UID())

	require.NotNil(t, router.Get("/evoting/events"))

	// The genesis is applied only once.
	require.NoError(t, ctrl.OnStart(make(node.FlagSet), inj))

	require.NoError(t, ctrl.OnStop(inj))
}

func TestController_OnStart_Failures(t *testing.T) {
	ctrl := NewController()

	err := ctrl.OnStart(make(node.FlagSet), node.NewInjector())
	require.EqualError(t, err, "injector: couldn't find dependency for 'config.Config'")

	inj := node.NewInjector()
	inj.Inject(config.Default())

	err = ctrl.OnStart(make(node.FlagSet), inj)
	require.EqualError(t, err, "injector: couldn't find dependency for '*native.Service'")

	inj, _ = newInjector(t, "")

	err = ctrl.OnStart(make(node.FlagSet), inj)
	require.EqualError(t, err,
		"genesis: failed to init: genesis failed: owner is not configured")

	inj, _ = newInjector(t, "0xAAA")

	err = ctrl.OnStart(make(node.FlagSet), inj)
	require.EqualError(t, err,
		"genesis: failed to init: genesis failed: invalid owner: malformed address '0xAAA'")
}

func TestActions(t *testing.T) {
	owner := newSigner(t)
	voter := newSigner(t)

	inj, _ := newInjector(t, owner.GetAddress().String())
	require.NoError(t, NewController().OnStart(make(node.FlagSet), inj))

	out := new(bytes.Buffer)
	flags := node.FlagSet{
		"key":       writeKey(t, owner),
		"title":     "Election A",
		"candidate": []interface{}{"Alice:mayor", "Bob"},
		"duration":  float64(60),
	}
	ctx := node.Context{Injector: inj, Flags: flags, Out: out}

	require.NoError(t, createAction{}.Execute(ctx))
	require.Equal(t, "event 1 created\n", out.String())

	flags["key"] = writeKey(t, voter)
	flags["event"] = 1
	flags["candidate"] = 1
	flags["voter"] = voter.GetAddress().String()

	out.Reset()
	require.NoError(t, voteAction{}.Execute(ctx))
	require.Equal(t, "vote of "+voter.GetAddress().String()+" cast in event 1\n", out.String())

	err := voteAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), string(evoting.AlreadyVoted))

	out.Reset()
	require.NoError(t, showAction{}.Execute(ctx))

	var view types.EventView
	require.NoError(t, json.Unmarshal(out.Bytes(), &view))
	require.Equal(t, "Election A", view.Title)
	require.Equal(t, "mayor", view.Candidates[0].Bio)
	require.Equal(t, uint64(1), view.Candidates[1].VoteCount)
	require.Equal(t, types.Active, view.Status)

	out.Reset()
	require.NoError(t, countAction{}.Execute(ctx))
	require.Equal(t, "1\n", out.String())

	out.Reset()
	require.NoError(t, votedAction{}.Execute(ctx))
	require.Equal(t, "true\n", out.String())

	out.Reset()
	require.NoError(t, whitelistedAction{}.Execute(ctx))
	require.Equal(t, "true\n", out.String())

	// Only the owner can deactivate the event.
	err = deactivateAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), string(evoting.Unauthorized))

	flags["key"] = writeKey(t, owner)

	out.Reset()
	require.NoError(t, deactivateAction{}.Execute(ctx))
	require.Equal(t, "event 1 deactivated\n", out.String())

	flags["event"] = 2

	err = showAction{}.Execute(ctx)
	require.EqualError(t, err, "EventNotFound: event 2")

	flags["event"] = 0

	err = voteAction{}.Execute(ctx)
	require.EqualError(t, err, "invalid event: 0")

	flags["event"] = 1
	flags["key"] = filepath.Join(t.TempDir(), "missing.key")

	err = voteAction{}.Execute(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to load signer")

	flags["voter"] = "0xAAA"

	err = votedAction{}.Execute(ctx)
	require.Error(t, err)
	require.True(t, evoting.KindOf(err) == evoting.InvalidInput)

	ctx.Injector = node.NewInjector()

	actions := []node.ActionTemplate{
		createAction{}, voteAction{}, deactivateAction{}, showAction{},
		countAction{}, votedAction{}, whitelistedAction{}, watchAction{},
	}

	for _, action := range actions {
		err = action.Execute(ctx)
		require.EqualError(t, err,
			"injector: couldn't find dependency for 'ordering.Service'")
	}
}

func TestWatchAction(t *testing.T) {
	events := make(chan ordering.Event, 2)
	events <- ordering.Event{
		Index: 1,
		Events: []execution.Event{
			{Contract: "other", Name: "ignored"},
			{Contract: evoting.ContractName, Name: types.EventCreatedName, Value: types.EventCreated{ID: 1, Title: "A"}},
		},
	}
	events <- ordering.Event{
		Index: 2,
		Events: []execution.Event{
			{Contract: evoting.ContractName, Name: types.EventDeactivatedName, Value: types.EventDeactivated{ID: 1}},
		},
	}
	close(events)

	inj := node.NewInjector()
	inj.Inject(fakeOrdering{events: events})

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"duration": time.Minute},
		Out:      out,
	}

	require.NoError(t, watchAction{}.Execute(ctx))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"index":1,"name":"EventCreated","value":{"id":1,"title":"A"}}`, lines[0])
	require.JSONEq(t, `{"index":2,"name":"EventDeactivated","value":{"id":1}}`, lines[1])
}

func TestWatchAction_Done(t *testing.T) {
	owner := newSigner(t)

	inj, _ := newInjector(t, owner.GetAddress().String())
	require.NoError(t, NewController().OnStart(make(node.FlagSet), inj))

	done := make(chan struct{})
	close(done)

	out := new(bytes.Buffer)
	ctx := node.Context{
		Injector: inj,
		Flags:    node.FlagSet{"duration": time.Hour},
		Out:      out,
		Done:     done,
	}

	require.NoError(t, watchAction{}.Execute(ctx))
	require.Empty(t, out.String())
}

func TestHTTP(t *testing.T) {
	owner := newSigner(t)
	voter := newSigner(t)

	inj, router := newInjector(t, owner.GetAddress().String())
	require.NoError(t, NewController().OnStart(make(node.FlagSet), inj))

	rec := serve(router, "/evoting/events")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"count": 0}`, rec.Body.String())

	flags := node.FlagSet{
		"key":       writeKey(t, owner),
		"title":     "Election B",
		"candidate": []interface{}{"Alice", "Bob"},
		"duration":  float64(60),
		"secure":    true,
		"whitelist": []interface{}{voter.GetAddress().String()},
	}
	ctx := node.Context{Injector: inj, Flags: flags, Out: new(bytes.Buffer)}

	require.NoError(t, createAction{}.Execute(ctx))

	rec = serve(router, "/evoting/events")
	require.JSONEq(t, `{"count": 1}`, rec.Body.String())

	rec = serve(router, "/evoting/events/1")
	require.Equal(t, http.StatusOK, rec.Code)

	var view types.EventView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.True(t, view.IsSecure)
	require.Equal(t, types.Active, view.Status)

	defer func(c func() time.Time) { clock = c }(clock)

	clock = func() time.Time { return time.Unix(view.EndTime+1, 0) }

	rec = serve(router, "/evoting/events/1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, types.Ended, view.Status)

	rec = serve(router, "/evoting/events/2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp proxyhttp.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(evoting.EventNotFound), resp.Kind)

	rec = serve(router, "/evoting/events/1/voters/"+strings.ToUpper(voter.GetAddress().String()[2:]))
	require.Equal(t, http.StatusOK, rec.Code)

	var voterResp types.VoterResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voterResp))
	require.Equal(t, types.VoterResponse{
		EventID:     1,
		Voter:       voter.GetAddress().String(),
		HasVoted:    false,
		Whitelisted: true,
	}, voterResp)

	rec = serve(router, "/evoting/events/1/voters/"+owner.GetAddress().String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &voterResp))
	require.False(t, voterResp.Whitelisted)

	rec = serve(router, "/evoting/events/1/voters/0xAAA")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, string(evoting.InvalidInput), resp.Kind)

	rec = serve(router, "/evoting/events/3/voters/"+voter.GetAddress().String())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// -----------------------------------------------------------------------------
// Utility functions

// newInjector returns an injector populated with a database and the ordering
// service, as the daemon does before the contract is started.
func newInjector(t *testing.T, owner string) (node.Injector, *mux.Router) {
	db, err := kv.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	cfg := config.Default()
	cfg.Owner = owner

	router := mux.NewRouter()

	inj := node.NewInjector()
	inj.Inject(cfg)
	inj.Inject(db)
	inj.Inject(routerProxy{router: router})

	require.NoError(t, serialcontroller.NewController().OnStart(make(node.FlagSet), inj))

	return inj, router
}

func newSigner(t *testing.T) wallet.Signer {
	signer, err := wallet.Generate()
	require.NoError(t, err)

	return signer
}

func writeKey(t *testing.T, signer wallet.Signer) string {
	data, err := signer.MarshalText()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "signer.key")
	require.NoError(t, os.WriteFile(path, data, 0400))

	return path
}

func serve(router *mux.Router, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	return rec
}

type fakeOrdering struct {
	ordering.Service

	events chan ordering.Event
}

func (o fakeOrdering) Watch(context.Context) <-chan ordering.Event {
	return o.events
}

type routerProxy struct {
	proxy.Proxy

	router *mux.Router
}

func (p routerProxy) RegisterHandler(path string, handler http.HandlerFunc, methods ...string) {
	p.router.HandleFunc(path, handler).Methods(methods...).Name(path)
}

func (p routerProxy) GetAddr() net.Addr {
	return nil
}

type fakeBuilder struct {
	node.Builder

	commands    []string
	subcommands []string
}

func (b *fakeBuilder) SetCommand(name string) cli.CommandBuilder {
	b.commands = append(b.commands, name)

	return &fakeCommand{builder: b}
}

func (b *fakeBuilder) MakeAction(node.ActionTemplate) cli.Action {
	return nil
}

type fakeCommand struct {
	cli.CommandBuilder

	builder *fakeBuilder
}

func (c *fakeCommand) SetDescription(string) {}

func (c *fakeCommand) SetFlags(...cli.Flag) {}

func (c *fakeCommand) SetAction(cli.Action) {}

func (c *fakeCommand) SetSubCommand(name string) cli.CommandBuilder {
	c.builder.subcommands = append(c.builder.subcommands, name)

	return c
}
