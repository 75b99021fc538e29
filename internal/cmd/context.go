package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/api"
	"github.com/richmansdream/crmdesk/internal/config"
	"github.com/richmansdream/crmdesk/internal/dashboard"
	"github.com/richmansdream/crmdesk/internal/log"
	"github.com/richmansdream/crmdesk/internal/mockdata"
	"github.com/richmansdream/crmdesk/internal/model"
	"github.com/richmansdream/crmdesk/internal/query"
	"github.com/richmansdream/crmdesk/internal/session"
	"github.com/richmansdream/crmdesk/internal/ux"
	"github.com/richmansdream/crmdesk/internal/version"
)

// CommandContext holds the flags and configuration of one command
// invocation, plus the collaborators built from them. Commands create it
// in RunE:
//
//	cc, err := NewCommandContext(cmd)
//	if err != nil {
//		return err
//	}
//	defer cc.Close()
type CommandContext struct {
	Config  *config.Config
	Output  string
	Query   string
	NoColor bool
	Logger  *log.Logger

	out     io.Writer
	closers []io.Closer
}

// NewCommandContext loads configuration and applies the persistent flags
// that were set explicitly.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	flags := cmd.Flags()

	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}
	envFile, err := flags.GetString("env-file")
	if err != nil {
		return nil, err
	}
	output, err := flags.GetString("output")
	if err != nil {
		return nil, err
	}
	queryExpr, err := flags.GetString("query")
	if err != nil {
		return nil, err
	}
	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return nil, err
	}

	opts := config.LoadOptions{Path: configPath}
	if envFile != "" {
		opts.EnvFiles = []string{envFile}
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, err
	}

	var overrides config.Overrides
	if overrides.BaseURL, err = flags.GetString("api-url"); err != nil {
		return nil, err
	}
	if overrides.LogLevel, err = flags.GetString("log-level"); err != nil {
		return nil, err
	}
	if overrides.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}
	if overrides.PageSize, err = flags.GetInt("page-size"); err != nil {
		return nil, err
	}
	if flags.Changed("mock") {
		mock, err := flags.GetBool("mock")
		if err != nil {
			return nil, err
		}
		overrides.Mock = &mock
	}
	if err := cfg.Apply(overrides); err != nil {
		return nil, err
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		noColor = true
	}

	cc := &CommandContext{
		Config:  cfg,
		Output:  output,
		Query:   queryExpr,
		NoColor: noColor,
		out:     cmd.OutOrStdout(),
	}
	cc.Logger = log.New(log.Config{
		Level:          log.ParseLevel(cfg.Log.Level),
		Format:         log.ParseFormat(cfg.Log.Format),
		Output:         log.NewOutput(cmd.ErrOrStderr()),
		AddSource:      cfg.Log.Level == "debug",
		ServiceName:    "crmdesk",
		ServiceVersion: version.GetInfo().Version,
	})
	return cc, nil
}

// Close releases files and connections opened for the command
func (cc *CommandContext) Close() {
	for i := len(cc.closers) - 1; i >= 0; i-- {
		_ = cc.closers[i].Close()
	}
	cc.closers = nil
}

// LogToFile redirects logging to the configured log file. The console uses
// it so log lines stay off the screen.
func (cc *CommandContext) LogToFile() error {
	out, closer, err := log.OutputFile(cc.Config.Log.File)
	if err != nil {
		return err
	}
	cc.closers = append(cc.closers, closer)
	cc.Logger = log.New(log.Config{
		Level:       log.ParseLevel(cc.Config.Log.Level),
		Format:      log.FormatJSON,
		Output:      out,
		ServiceName: "crmdesk",
	})
	return nil
}

// Print renders data in the selected output format
func (cc *CommandContext) Print(data any) error {
	f, err := ux.NewFormatter(cc.Output, &ux.FormatterOptions{
		Writer:  cc.out,
		NoColor: cc.NoColor,
		Query:   cc.Query,
	})
	if err != nil {
		return err
	}
	return f.Format(data)
}

// Printf writes human-oriented text. It is silent for json and yaml output
// so machine-readable results stay parseable.
func (cc *CommandContext) Printf(format string, args ...any) {
	if cc.Output != "" && cc.Output != "text" {
		return
	}
	fmt.Fprintf(cc.out, format, args...)
}

// NewClient creates an API client for the configured base URL
func (cc *CommandContext) NewClient() *api.Client {
	ua := cc.Config.API.UserAgent
	if ua == "" {
		ua = version.GetInfo().UserAgent()
	}
	return api.NewClient(cc.Config.API.BaseURL,
		api.WithUserAgent(ua),
		api.WithLogger(cc.Logger),
	)
}

// TokenStore opens the configured token store
func (cc *CommandContext) TokenStore() (session.TokenStore, error) {
	switch cc.Config.Session.Store {
	case config.StoreMemory:
		return session.NewMemoryStore(), nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cc.Config.Redis.Addr,
			Password: cc.Config.Redis.Password,
			DB:       cc.Config.Redis.DB,
		})
		cc.closers = append(cc.closers, client)
		return session.NewRedisStoreWithPrefix(client, cc.Config.Redis.Prefix), nil
	default:
		return session.NewFileStore(cc.Config.Session.File), nil
	}
}

// NewSession builds a session manager over a fresh client. The caller runs
// Initialize.
func (cc *CommandContext) NewSession() (*session.Manager, *api.Client, error) {
	store, err := cc.TokenStore()
	if err != nil {
		return nil, nil, err
	}
	client := cc.NewClient()
	mgr := session.NewManager(client, store,
		session.WithLogger(cc.Logger),
		session.WithKey(cc.Config.Session.Key),
	)
	return mgr, client, nil
}

// Session is NewSession followed by the initial token check
func (cc *CommandContext) Session(ctx context.Context) (*session.Manager, *api.Client, error) {
	mgr, client, err := cc.NewSession()
	if err != nil {
		return nil, nil, err
	}
	mgr.Initialize(ctx)
	return mgr, client, nil
}

// RequireSession is Session for commands that need a signed-in user
func (cc *CommandContext) RequireSession(ctx context.Context) (*session.Manager, *api.Client, error) {
	mgr, client, err := cc.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	if !mgr.Snapshot().Authenticated() {
		return nil, nil, notSignedInError()
	}
	return mgr, client, nil
}

// noCredential is used in mock mode, where no session is needed
type noCredential struct{}

func (noCredential) Credential() string { return "" }

// Reader returns the client and credentials for read commands. Mock mode
// reads bundled data and needs no session.
func (cc *CommandContext) Reader(ctx context.Context) (*api.Client, query.CredentialProvider, error) {
	if cc.Config.Mock.Enabled {
		return cc.NewClient(), noCredential{}, nil
	}
	mgr, client, err := cc.RequireSession(ctx)
	if err != nil {
		return nil, nil, err
	}
	return client, mgr, nil
}

// ListConfig applies the configured page size to a list configuration
func (cc *CommandContext) ListConfig(cfg query.Config) query.Config {
	return query.WithPageSize(cfg, cc.Config.Lists.PageSize)
}

// LeadSource returns where lead pages are read from
func (cc *CommandContext) LeadSource(client *api.Client, creds query.CredentialProvider) query.Source[model.Lead] {
	mock := query.NewMockSource(mockdata.Leads(), query.MatchLead)
	return sourceFor(cc, query.NewHTTPSource[model.Lead](client, query.Leads, creds), mock)
}

// EmailSource returns where email pages are read from
func (cc *CommandContext) EmailSource(client *api.Client, creds query.CredentialProvider) query.Source[model.Email] {
	mock := query.NewMockSource(mockdata.Emails(), query.MatchEmail)
	return sourceFor(cc, query.NewHTTPSource[model.Email](client, query.Emails, creds), mock)
}

func sourceFor[T any](cc *CommandContext, primary, mock query.Source[T]) query.Source[T] {
	switch {
	case cc.Config.Mock.Enabled:
		return mock
	case cc.Config.Mock.Fallback:
		return query.NewFallbackSource(primary, mock, cc.Logger)
	default:
		return primary
	}
}

// Templates loads the active email templates
func (cc *CommandContext) Templates(ctx context.Context, client *api.Client, creds query.CredentialProvider) ([]model.EmailTemplate, error) {
	if cc.Config.Mock.Enabled {
		return activeTemplates(mockdata.Templates()), nil
	}
	templates, err := client.EmailTemplates(ctx, creds.Credential())
	if err != nil && cc.Config.Mock.Fallback && endpointMissing(err) {
		cc.Logger.WithError(err).Warn("templates endpoint unavailable, serving bundled data")
		return activeTemplates(mockdata.Templates()), nil
	}
	return templates, err
}

func activeTemplates(all []model.EmailTemplate) []model.EmailTemplate {
	out := make([]model.EmailTemplate, 0, len(all))
	for _, t := range all {
		if t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

// LoadDashboard loads the dashboard sections concurrently
func (cc *CommandContext) LoadDashboard(ctx context.Context, client *api.Client, creds query.CredentialProvider) (*dashboard.Data, error) {
	leads := cc.LeadSource(client, creds)
	if cc.Config.Mock.Enabled {
		return dashboard.Load(ctx, mockDashboard{leads: leads}, dashboard.Options{Logger: cc.Logger})
	}
	return dashboard.Load(ctx, dashboard.NewAPISource(client, leads, creds), dashboard.Options{
		Fallback: cc.Config.Mock.Fallback,
		Logger:   cc.Logger,
	})
}

// mockDashboard serves the dashboard from bundled data
type mockDashboard struct {
	leads query.Source[model.Lead]
}

func (m mockDashboard) Stats(context.Context) (*model.DashboardStats, error) {
	s := mockdata.Stats()
	return &s, nil
}

func (m mockDashboard) Charts(context.Context) (*model.DashboardCharts, error) {
	c := mockdata.Charts()
	return &c, nil
}

func (m mockDashboard) RecentLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	page, err := m.leads.List(ctx, query.Params{Page: 1, Limit: limit})
	return page.Items, err
}
