package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/reelpitch/reelpitch/internal/vault"
	"github.com/reelpitch/reelpitch/internal/vault/drivers/sqlite"
	"github.com/reelpitch/reelpitch/pkg/cryptox"
	"github.com/reelpitch/reelpitch/pkg/jwtx"
	"github.com/reelpitch/reelpitch/pkg/pitchsdk"
	"github.com/reelpitch/reelpitch/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application bundles the vault and the API client behind the pitchctl
// command surface.
type Application struct {
	cfg    *Config
	logger *slog.Logger

	vault  *vault.Vault
	client *pitchsdk.Client
}

// New initializes the application: logger, sealed vault (with migrations)
// and the API client on top of it.
func New(cfg *Config) (*Application, error) {
	logger := slogx.New(slogx.Config{
		App:     "pitchctl",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	sealer, err := cryptox.NewSealer(cfg.DeviceKeyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device key: %w", err)
	}

	store, err := sqlite.NewStore(cfg.VaultPath(), sealer)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}
	if err := store.ApplyMigrations(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate vault: %w", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("vault is not reachable: %w", err)
	}

	v := vault.New(store, logger)

	client := pitchsdk.New(pitchsdk.Config{
		Endpoints: cfg.Endpoints(),
		Timeouts:  cfg.SDKTimeouts(),
		Store:     v,
		Logger:    logger,
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		vault:  v,
		client: client,
	}, nil
}

// Close releases the vault.
func (app *Application) Close() error {
	return app.vault.Close()
}

// Run dispatches a single command invocation.
func (app *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		return app.logout(ctx)
	case "me":
		return app.me(ctx)
	case "feed":
		return app.feed(ctx)
	case "like":
		return app.toggle(ctx, rest, app.client.ToggleVideoLike, "liked")
	case "favorite":
		return app.toggle(ctx, rest, app.client.ToggleVideoFavorite, "favorited")
	case "search":
		return app.search(ctx, rest)
	case "send":
		return app.send(ctx, rest)
	case "upload":
		return app.upload(ctx, rest)
	case "notify":
		return app.notify(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

const usage = `usage: pitchctl <command> [args]

commands:
  login <email> <password>     sign in and store the session
  logout                       drop the session
  me                           show the signed-in profile
  feed                         list the discovery feed
  like <video-id>              toggle a like
  favorite <video-id>          toggle a favorite
  search [query]               search users (no query repeats the last one)
  send <user-id> <message>     send a chat message
  upload <title> <file>        create a video and upload the media file
  notify <email> <message>     push a notification`

func (app *Application) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: pitchctl login <email> <password>")
	}
	if err := app.client.Login(ctx, args[0], args[1]); err != nil {
		return err
	}
	fmt.Println("signed in")
	return nil
}

func (app *Application) logout(ctx context.Context) error {
	app.client.Logout(ctx)
	fmt.Println("signed out")
	return nil
}

func (app *Application) me(ctx context.Context) error {
	user, err := app.client.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s <%s>\n", user.Name, user.Email)
	if user.Bio != "" {
		fmt.Println(user.Bio)
	}
	return nil
}

func (app *Application) feed(ctx context.Context) error {
	if !app.vault.HomeHintSeen(ctx) {
		fmt.Println("tip: like a few pitches to tune your feed")
		app.vault.SetHomeHintSeen(ctx)
	}

	page, err := app.client.Feed(ctx, 20)
	if errors.Is(err, pitchsdk.ErrEmptyFeed) {
		fmt.Println("no pitches yet")
		return nil
	}
	if err != nil {
		return err
	}

	for _, v := range page.Items {
		fmt.Printf("%s  %s\n", v.ID, v.Title)
	}
	return nil
}

func (app *Application) toggle(
	ctx context.Context,
	args []string,
	do func(context.Context, string) (bool, error),
	verb string,
) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: pitchctl %s <video-id>", verb)
	}
	on, err := do(ctx, args[0])
	if err != nil {
		return err
	}
	if on {
		fmt.Printf("%s %s\n", verb, args[0])
	} else {
		fmt.Printf("un%s %s\n", verb, args[0])
	}
	return nil
}

// search runs a user search. With no argument it repeats the previous query,
// which is kept per signed-in user in the vault.
func (app *Application) search(ctx context.Context, args []string) error {
	owner := app.owner(ctx)

	query := strings.Join(args, " ")
	if query == "" && owner != "" {
		if data, ok := app.vault.FilterCache(ctx, owner); ok {
			var last struct {
				Query string `json:"query"`
			}
			if json.Unmarshal(data, &last) == nil {
				query = last.Query
			}
		}
	}
	if query == "" {
		return errors.New("usage: pitchctl search <query>")
	}

	users, err := app.client.SearchUsers(ctx, query)
	if err != nil {
		return err
	}

	if owner != "" {
		if data, err := json.Marshal(map[string]string{"query": query}); err == nil {
			app.vault.SaveFilterCache(ctx, owner, data)
		}
	}

	for _, u := range users {
		fmt.Printf("%s  %s <%s>\n", u.ID, u.Name, u.Email)
	}
	return nil
}

func (app *Application) send(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: pitchctl send <user-id> <message>")
	}
	msg, err := app.client.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if msg != nil {
		fmt.Printf("sent %s\n", msg.ID)
	} else {
		fmt.Println("sent")
	}
	return nil
}

func (app *Application) upload(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: pitchctl upload <title> <file>")
	}
	title, path := args[0], args[1]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open media file: %w", err)
	}
	defer f.Close()

	created, err := app.client.CreateVideo(ctx, pitchsdk.CreateVideoRequest{Title: title})
	if err != nil {
		return err
	}
	if created.UploadURL == "" {
		return errors.New("backend did not return an upload URL")
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "video/mp4"
	}
	if err := app.client.Upload(ctx, created.UploadURL, contentType, f); err != nil {
		return err
	}
	fmt.Printf("uploaded %s\n", created.ID)
	return nil
}

func (app *Application) notify(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errors.New("usage: pitchctl notify <email> <message>")
	}
	err := app.client.Notify(ctx, pitchsdk.NotifyRequest{
		Email:   args[0],
		Type:    "message",
		Message: strings.Join(args[1:], " "),
	})
	if err != nil {
		return err
	}
	fmt.Println("notification queued")
	return nil
}

// owner returns the signed-in user's subject, or "" with no session.
func (app *Application) owner(ctx context.Context) string {
	cred, ok := app.vault.Credential(ctx)
	if !ok {
		return ""
	}
	claims := jwtx.Decode(cred.AccessToken)
	if claims == nil {
		return ""
	}
	return claims.Subject
}
