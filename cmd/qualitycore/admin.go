package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/baron-png/quality-core/internal/adapter/identity"
	"github.com/baron-png/quality-core/internal/adapter/postgres"
	"github.com/baron-png/quality-core/internal/config"
	"github.com/baron-png/quality-core/internal/domain/tenant"
	"github.com/baron-png/quality-core/internal/saga"
	"github.com/baron-png/quality-core/internal/service"
)

// runAdmin dispatches admin subcommands (bootstrap-tenant, list-tenants).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "bootstrap-tenant":
		return runAdminBootstrapTenant(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: qualitycore admin <command> [options]

Commands:
  bootstrap-tenant   Provision a tenant with its admin user
  list-tenants       List all tenants
  help               Show this help message

Examples:
  qualitycore admin bootstrap-tenant --name "Acme University" --domain acme.edu \
    --email contact@acme.edu --type UNIVERSITY --admin-email admin@acme.edu \
    --admin-first-name Ada --admin-last-name Stone
  qualitycore admin list-tenants
`)
}

// runAdminBootstrapTenant runs the full tenant provisioning workflow from
// the command line, including the identity registration and collaborator
// sync steps. The collaborators must be reachable.
func runAdminBootstrapTenant(args []string) error {
	fs := flag.NewFlagSet("bootstrap-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant name (required)")
	domain := fs.String("domain", "", "tenant domain (required)")
	email := fs.String("email", "", "tenant contact email (required)")
	tenantType := fs.String("type", string(tenant.TypeUniversity), "tenant type")
	adminEmail := fs.String("admin-email", "", "admin user email (required)")
	adminFirst := fs.String("admin-first-name", "", "admin first name (required)")
	adminLast := fs.String("admin-last-name", "", "admin last name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := promptPassword("Admin password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	identityClient := identity.New(cfg.Collaborators.IdentityURL, cfg.Collaborators.Timeout,
		newBreaker(cfg.Breaker))
	documentClient := newCollaborator("document", cfg.Collaborators.DocumentURL, cfg)
	notificationClient := newCollaborator("notification", cfg.Collaborators.NotificationURL, cfg)

	orch := saga.NewOrchestrator(saga.NewExecutor(saga.RetryPolicy{
		MaxAttempts: cfg.Saga.MaxAttempts,
		Base:        cfg.Saga.Base,
		Cap:         cfg.Saga.Cap,
		Multiplier:  cfg.Saga.Multiplier,
	}))

	svc := service.NewProvisioningService(
		postgres.NewStore(pool), identityClient, documentClient, notificationClient,
		orch, nil, nil)

	t, err := svc.CreateTenant(ctx, tenant.CreateRequest{
		Name:           *name,
		Domain:         *domain,
		Email:          *email,
		Type:           tenant.Type(*tenantType),
		AdminEmail:     *adminEmail,
		AdminFirstName: *adminFirst,
		AdminLastName:  *adminLast,
		AdminPassword:  password,
	})
	if err != nil {
		return fmt.Errorf("bootstrap tenant: %w", err)
	}

	fmt.Printf("Tenant %s created (id %s, status %s)\n", t.Name, t.ID, t.Status)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	tenants, err := postgres.NewStore(pool).ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tDOMAIN\tTYPE\tSTATUS")
	for i := range tenants {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			tenants[i].ID, tenants[i].Name, tenants[i].Domain, tenants[i].Type, tenants[i].Status)
	}
	return w.Flush()
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
