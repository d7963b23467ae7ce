package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/taskboard-client/internal/application/notification"
	"github.com/taskboard-client/internal/application/role"
	"github.com/taskboard-client/internal/application/session"
	"github.com/taskboard-client/internal/application/task"
	"github.com/taskboard-client/internal/application/user"
	"github.com/taskboard-client/internal/config"
	"github.com/taskboard-client/internal/domain"
	"github.com/taskboard-client/internal/infrastructure/rest"
	"github.com/taskboard-client/internal/infrastructure/state"
	"github.com/taskboard-client/internal/permission"
)

const usage = `usage: taskboard <command> [flags]

commands:
  login          -email -password
  register       -name -email -password [-role <id>]
  logout
  whoami
  perms          [-role <name>] [-action <name>]
  tasks          [list|mine]
  roles          list
  users          list
  notifications  [list|seen <id>|seen-all]
  watch
`

// app is the composition root: every store shares one transport and one
// session manager, wired here instead of living as package globals.
type app struct {
	cfg           *config.Config
	sessions      *session.Manager
	notifications *notification.Synchronizer
	tasks         *task.Store
	roles         *role.Store
	users         *user.Store
	pushed        chan domain.Notification
}

func newApp() (*app, error) {
	cfg := config.Load()

	store, err := state.NewStore(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	// The manager needs the client and the client needs the manager's
	// token, so the token source closes over a variable assigned below.
	var sessions *session.Manager
	client := rest.NewClient(rest.ClientDeps{
		BaseURL: cfg.APIBaseURL,
		Token: func() string {
			if sessions == nil {
				return ""
			}
			return sessions.Token()
		},
		Timeout:        cfg.HTTPTimeout,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	sessions = session.NewManager(session.ManagerDeps{API: client, State: store})
	sessions.Restore()

	pushed := make(chan domain.Notification, 16)
	return &app{
		cfg:      cfg,
		sessions: sessions,
		notifications: notification.NewSynchronizer(notification.SynchronizerDeps{
			API:       client,
			Token:     sessions.Token,
			WSBaseURL: cfg.WSBaseURL,
			OnPush: func(n domain.Notification) {
				select {
				case pushed <- n:
				default: // watch not draining; drop rather than block the read loop
				}
			},
		}),
		tasks:  task.NewStore(client),
		roles:  role.NewStore(client),
		users:  user.NewStore(client),
		pushed: pushed,
	}, nil
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	a, err := newApp()
	if err != nil {
		log.Fatalf("startup: %v", err)
	}

	ctx := context.Background()
	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "login":
		return a.login(ctx, args)
	case "register":
		return a.register(ctx, args)
	case "logout":
		a.sessions.Logout()
		fmt.Println("logged out")
		return nil
	case "whoami":
		return a.whoami()
	case "perms":
		return a.perms(args)
	case "tasks":
		return a.taskCmd(ctx, args)
	case "roles":
		return a.roleCmd(ctx, args)
	case "users":
		return a.userCmd(ctx, args)
	case "notifications":
		return a.notificationCmd(ctx, args)
	case "watch":
		return a.watch(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// requireAuth is the protected-page guard: unauthenticated callers are sent
// to login instead of the command they asked for.
func (a *app) requireAuth() error {
	if !a.sessions.Authenticated() {
		return fmt.Errorf("not logged in; run 'taskboard login' first")
	}
	return nil
}

// requireGuest is the guest-only guard: an authenticated session is pointed
// at the landing commands rather than re-running auth flows.
func (a *app) requireGuest() error {
	if a.sessions.Authenticated() {
		return fmt.Errorf("already logged in; run 'taskboard logout' first")
	}
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	if err := a.requireGuest(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)

	if err := a.sessions.Login(ctx, domain.LoginRequest{Email: *email, Password: *password}); err != nil {
		return fmt.Errorf("%s", a.sessions.Err())
	}
	sess := a.sessions.Current()
	fmt.Printf("logged in as %s (%s)\n", sess.Email, roleOrNone(sess.RoleName))
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	if err := a.requireGuest(); err != nil {
		return err
	}
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	roleID := fs.Int64("role", 0, "optional role id")
	_ = fs.Parse(args)

	req := domain.RegisterRequest{Name: *name, Email: *email, Password: *password}
	if *roleID != 0 {
		req.RoleID = roleID
	}
	if err := a.sessions.Register(ctx, req); err != nil {
		return fmt.Errorf("%s", a.sessions.Err())
	}
	sess := a.sessions.Current()
	fmt.Printf("registered as %s (%s)\n", sess.Email, roleOrNone(sess.RoleName))
	return nil
}

func (a *app) whoami() error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	sess := a.sessions.Current()
	fmt.Printf("user:  %s <%s> (id %d)\n", sess.Name, sess.Email, sess.UserID)
	fmt.Printf("role:  %s\n", roleOrNone(sess.RoleName))
	if exp := a.sessions.TokenExpiresAt(); exp != nil {
		fmt.Printf("token: expires %s\n", exp.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Printf("can:   %s\n", permission.ActionList(sess.RoleName))
	return nil
}

func (a *app) perms(args []string) error {
	fs := flag.NewFlagSet("perms", flag.ExitOnError)
	roleName := fs.String("role", "", "role name (defaults to the session role)")
	action := fs.String("action", "", "check a single action instead of listing")
	_ = fs.Parse(args)

	name := *roleName
	if name == "" {
		if err := a.requireAuth(); err != nil {
			return err
		}
		name = a.sessions.Current().RoleName
	}
	if *action != "" {
		fmt.Println(permission.Has(name, *action))
		return nil
	}
	fmt.Println(permission.ActionList(name))
	return nil
}

func (a *app) taskCmd(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		if err := a.tasks.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.tasks.Err())
		}
	case "mine":
		if err := a.tasks.FetchMine(ctx); err != nil {
			return fmt.Errorf("%s", a.tasks.Err())
		}
	default:
		return fmt.Errorf("unknown tasks subcommand %q", sub)
	}
	for _, t := range a.tasks.Tasks() {
		fmt.Printf("%-6d %-10s %-10s %s\n", t.TaskID, t.Status, t.Priority, t.Title)
	}
	return nil
}

func (a *app) roleCmd(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.roles.FetchAll(ctx); err != nil {
		return fmt.Errorf("%s", a.roles.Err())
	}
	for _, r := range a.roles.Roles() {
		fmt.Printf("%-6d %s\n", r.RoleID, r.Name)
	}
	return nil
}

func (a *app) userCmd(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.users.FetchAll(ctx); err != nil {
		return fmt.Errorf("%s", a.users.Err())
	}
	for _, u := range a.users.Users() {
		roleName := ""
		if u.Role != nil {
			roleName = u.Role.Name
		}
		fmt.Printf("%-6d %-24s %-32s %s\n", u.UserID, u.Name, u.Email, roleName)
	}
	return nil
}

func (a *app) notificationCmd(ctx context.Context, args []string) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	sub := "list"
	if len(args) > 0 {
		sub = args[0]
	}
	switch sub {
	case "list":
		if err := a.notifications.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		for _, n := range a.notifications.Items() {
			marker := " "
			if n.Unread() {
				marker = "*"
			}
			fmt.Printf("%s %-6d [%s/%s] %s\n", marker, n.NotificationID, n.Kind, n.Action, n.Title)
		}
		fmt.Printf("%d unread\n", a.notifications.UnreadCount())
		return nil
	case "seen":
		if len(args) < 2 {
			return fmt.Errorf("usage: taskboard notifications seen <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid notification id %q", args[1])
		}
		if err := a.notifications.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		if err := a.notifications.MarkSeen(ctx, id); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		return nil
	case "seen-all":
		if err := a.notifications.FetchAll(ctx); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		if err := a.notifications.MarkAllSeen(ctx); err != nil {
			return fmt.Errorf("%s", a.notifications.Err())
		}
		return nil
	default:
		return fmt.Errorf("unknown notifications subcommand %q", sub)
	}
}

// watch tails the live feed until interrupted.
func (a *app) watch(ctx context.Context) error {
	if err := a.requireAuth(); err != nil {
		return err
	}
	if err := a.notifications.FetchAll(ctx); err != nil {
		return fmt.Errorf("%s", a.notifications.Err())
	}
	fmt.Printf("%d notifications, %d unread; watching for new ones (ctrl-c to stop)\n",
		len(a.notifications.Items()), a.notifications.UnreadCount())

	a.notifications.Connect(ctx)
	defer a.notifications.Disconnect()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case n := <-a.pushed:
			fmt.Printf("* %-6d [%s/%s] %s (%d unread)\n",
				n.NotificationID, n.Kind, n.Action, n.Title, a.notifications.UnreadCount())
		case <-quit:
			return nil
		}
	}
}

func roleOrNone(name string) string {
	if name == "" {
		return "no role"
	}
	return name
}
