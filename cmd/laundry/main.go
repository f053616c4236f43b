package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"mylaundry/internal/api"
	"mylaundry/internal/config"
	"mylaundry/internal/models"
	"mylaundry/internal/order"
	"mylaundry/internal/poll"
	"mylaundry/internal/session"
	"mylaundry/internal/stats"
	"mylaundry/internal/storage"

	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the dependencies every command needs.
type app struct {
	cfg      config.Config
	db       *storage.DB
	sessions *session.Manager
	api      *api.Client
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		printUsage(stdout)
		return errors.New("missing command")
	}
	if args[0] == "help" {
		printUsage(stdout)
		return nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	defer db.Close()

	sessions := session.NewManager(db)
	sessions.Restore()

	a := &app{
		cfg:      cfg,
		db:       db,
		sessions: sessions,
		api:      api.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout, sessions),
		stdin:    stdin,
		stdout:   stdout,
		stderr:   stderr,
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		return a.register(rest)
	case "login":
		return a.login(rest)
	case "logout":
		return a.logout()
	case "profile":
		return a.profile()
	case "prices":
		return a.prices(rest)
	case "price":
		return a.price(rest)
	case "order":
		return a.order(rest)
	case "orders":
		return a.orders(rest)
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: laundry <command> [flags]

Commands:
  register   Create a staff account (-user, -email)
  login      Log in and store the session (-email)
  logout     Log out and clear the stored session
  profile    Show the current account
  prices     List service packages (-search, -watch)
  price      Manage packages: price add|update|rm
  order      Create an order (-name, -phone, -weight, -done, -packages)
  orders     List submitted orders (-stats, -watch)
  help       Show this help`)
}

func (a *app) register(args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	username := fs.String("user", "", "Username")
	email := fs.String("email", "", "Account email")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" || *email == "" {
		return errors.New("missing required flags: user, email")
	}

	password, err := a.obtainPassword(*passwordFlag)
	if err != nil {
		return err
	}

	if err := a.api.Register(context.Background(), *username, *email, password); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Registration successful. You can now log in.")
	return nil
}

func (a *app) login(args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	email := fs.String("email", "", "Account email")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return errors.New("missing required flag: email")
	}

	password, err := a.obtainPassword(*passwordFlag)
	if err != nil {
		return err
	}

	token, err := a.api.Login(context.Background(), *email, password)
	if err != nil {
		return err
	}
	if err := a.sessions.Login(token); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "Login successful.")
	return nil
}

func (a *app) logout() error {
	err := a.sessions.Logout()
	// The in-memory session is cleared even when the delete failed, so
	// the user is logged out either way.
	fmt.Fprintln(a.stdout, "Logged out.")
	return err
}

func (a *app) profile() error {
	p, err := a.api.Profile(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "Username: %s\n", p.Username)
	fmt.Fprintf(a.stdout, "Email:    %s\n", p.Email)
	fmt.Fprintf(a.stdout, "Since:    %s\n", p.CreatedAt.Format("2 Jan 2006"))
	return nil
}

func (a *app) prices(args []string) error {
	fs := flag.NewFlagSet("prices", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	search := fs.String("search", "", "Filter by package name or price")
	watch := fs.Bool("watch", false, "Keep refreshing until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *watch {
		return a.watch(func(ctx context.Context) {
			if err := a.showPrices(ctx, *search); err != nil {
				fmt.Fprintf(a.stderr, "refresh failed: %v\n", err)
			}
		})
	}
	return a.showPrices(context.Background(), *search)
}

func (a *app) showPrices(ctx context.Context, search string) error {
	pkgs, err := a.api.ListPrices(ctx)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) || errors.Is(err, session.ErrNotAuthenticated) {
			return err
		}
		// Server unreachable: fall back to the last fetched list.
		cached, fetchedAt, cerr := a.db.CachedPackages()
		if cerr != nil || len(cached) == 0 {
			return err
		}
		fmt.Fprintf(a.stderr, "Server unreachable (%v); showing prices fetched %s.\n",
			err, fetchedAt.Local().Format("2 Jan 15:04"))
		pkgs = cached
	} else {
		// Best effort. Overlapping -watch ticks may contend on the
		// cache; the losing write is only logged and the next tick
		// refreshes it anyway.
		if err := a.db.ReplacePackages(pkgs); err != nil {
			log.Printf("cache prices: %v", err)
		}
	}

	pkgs = filterPackages(pkgs, search)
	if len(pkgs) == 0 {
		fmt.Fprintln(a.stdout, "No packages available.")
		return nil
	}
	for _, p := range pkgs {
		fmt.Fprintf(a.stdout, "%-26s %-22s Rp %.0f/kg\n", p.ID, p.Name, p.Price)
	}
	return nil
}

// filterPackages keeps packages whose name contains the query
// (case-insensitive) or whose price contains it as a digit string.
func filterPackages(pkgs []models.Package, query string) []models.Package {
	if query == "" {
		return pkgs
	}
	query = strings.ToLower(query)
	out := make([]models.Package, 0, len(pkgs))
	for _, p := range pkgs {
		if strings.Contains(strings.ToLower(p.Name), query) ||
			strings.Contains(strconv.FormatFloat(p.Price, 'f', -1, 64), query) {
			out = append(out, p)
		}
	}
	return out
}

func (a *app) price(args []string) error {
	if len(args) == 0 {
		return errors.New("usage: price add|update|rm [flags]")
	}
	sub, rest := args[0], args[1:]

	fs := flag.NewFlagSet("price "+sub, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	id := fs.String("id", "", "Package id")
	name := fs.String("name", "", "Package name")
	price := fs.Float64("price", 0, "Unit price per kg")
	if err := fs.Parse(rest); err != nil {
		return err
	}

	ctx := context.Background()
	switch sub {
	case "add":
		if *name == "" || *price <= 0 {
			return errors.New("missing required flags: name, price")
		}
		pkg, err := a.api.CreatePrice(ctx, *name, *price)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Added %s (%s) at Rp %.0f/kg\n", pkg.Name, pkg.ID, pkg.Price)
		return nil
	case "update":
		if *id == "" || *name == "" || *price <= 0 {
			return errors.New("missing required flags: id, name, price")
		}
		pkg, err := a.api.UpdatePrice(ctx, *id, *name, *price)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stdout, "Updated %s to Rp %.0f/kg\n", pkg.Name, pkg.Price)
		return nil
	case "rm":
		if *id == "" {
			return errors.New("missing required flag: id")
		}
		if err := a.api.DeletePrice(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "Package deleted.")
		return nil
	default:
		return fmt.Errorf("unknown price subcommand %q", sub)
	}
}

func (a *app) order(args []string) error {
	fs := flag.NewFlagSet("order", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	name := fs.String("name", "", "Customer name")
	phone := fs.String("phone", "", "Customer phone")
	weight := fs.String("weight", "", "Weight in kilograms")
	done := fs.String("done", "", "Completion date (YYYY-MM-DD)")
	received := fs.String("received", "", "Received date (defaults to today)")
	packages := fs.String("packages", "", "Comma-separated package ids")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	available, err := a.api.ListPrices(ctx)
	if err != nil {
		return fmt.Errorf("fetch price list: %w", err)
	}
	byID := make(map[string]int, len(available))
	for i, p := range available {
		byID[p.ID] = i
	}

	draft := order.NewBuilder()
	draft.CustomerName = *name
	draft.CustomerPhone = *phone
	draft.Weight = *weight
	draft.CompletionDate = *done
	if *received != "" {
		draft.ReceivedDate = *received
	}

	for _, id := range strings.Split(*packages, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		i, ok := byID[id]
		if !ok {
			return fmt.Errorf("unknown package id %q", id)
		}
		if err := draft.AddPackage(available[i]); err != nil {
			if errors.Is(err, order.ErrDuplicatePackage) {
				fmt.Fprintf(a.stderr, "Note: package %s already added, skipping duplicate.\n", id)
				continue
			}
			return err
		}
	}

	if err := draft.Validate(); err != nil {
		return err
	}

	created, err := a.api.CreateOrder(ctx, draft.BuildPayload())
	if err != nil {
		return err
	}
	draft.Reset()

	fmt.Fprintf(a.stdout, "Order %s submitted for %s. Total: Rp %.0f\n",
		created.ID, created.CustomerName, created.TotalPrice)
	return nil
}

func (a *app) orders(args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	showStats := fs.Bool("stats", false, "Show monthly totals instead of the list")
	watch := fs.Bool("watch", false, "Keep refreshing until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *watch {
		return a.watch(func(ctx context.Context) {
			if err := a.showOrders(ctx, *showStats); err != nil {
				fmt.Fprintf(a.stderr, "refresh failed: %v\n", err)
			}
		})
	}
	return a.showOrders(context.Background(), *showStats)
}

func (a *app) showOrders(ctx context.Context, showStats bool) error {
	orders, err := a.api.ListOrders(ctx)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) || errors.Is(err, session.ErrNotAuthenticated) {
			return err
		}
		cached, fetchedAt, cerr := a.db.CachedOrders()
		if cerr != nil || len(cached) == 0 {
			return err
		}
		fmt.Fprintf(a.stderr, "Server unreachable (%v); showing orders fetched %s.\n",
			err, fetchedAt.Local().Format("2 Jan 15:04"))
		orders = cached
	} else {
		// Best effort, same as the price cache: a write lost to an
		// overlapping -watch tick only costs offline freshness.
		if err := a.db.ReplaceOrders(orders); err != nil {
			log.Printf("cache orders: %v", err)
		}
	}

	if showStats {
		for _, s := range stats.ByMonth(orders) {
			fmt.Fprintf(a.stdout, "%-9s %3d orders  %7.1f kg  Rp %.0f\n",
				s.Label(), s.Orders, s.WeightKg, s.TotalPrice)
		}
		return nil
	}

	if len(orders) == 0 {
		fmt.Fprintln(a.stdout, "No orders yet.")
		return nil
	}
	for _, o := range orders {
		received := "-"
		if o.ReceivedDate != nil {
			received = o.ReceivedDate.Format("2006-01-02")
		}
		names := make([]string, 0, len(o.Packages))
		for _, p := range o.Packages {
			names = append(names, p.Name)
		}
		fmt.Fprintf(a.stdout, "%s  %-16s %-12s %5.1f kg  Rp %-9.0f in %s, due %s  [%s]\n",
			o.ID, o.CustomerName, o.CustomerPhone, o.Weight, o.TotalPrice,
			received, o.CompletionDate.Format("2006-01-02"), strings.Join(names, ", "))
	}
	return nil
}

// watch runs fetch on the configured interval until the process is
// interrupted, then stops the poller before returning.
func (a *app) watch(fetch func(context.Context)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := poll.Start(ctx, a.cfg.PollInterval, fetch)
	<-ctx.Done()
	p.Stop()

	fmt.Fprintln(a.stdout, "Stopped.")
	return nil
}

func (a *app) obtainPassword(flagValue string) (string, error) {
	password := flagValue
	if password == "" {
		fmt.Fprint(a.stdout, "Password: ")
		var err error
		password, err = readPassword(a.stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(a.stdout) // Print newline after password input
	}
	if strings.TrimSpace(password) == "" {
		return "", errors.New("password cannot be empty")
	}
	return password, nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
