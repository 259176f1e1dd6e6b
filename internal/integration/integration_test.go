package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"quiz-funnel-service/internal/app"
	"quiz-funnel-service/internal/domain"
	"quiz-funnel-service/internal/infra/postgres"
	pgmigrations "quiz-funnel-service/internal/infra/postgres/migrations"
	infraredis "quiz-funnel-service/internal/infra/redis"
	"quiz-funnel-service/internal/logging"
	"quiz-funnel-service/internal/templates"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestFunnelEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(pgURL)
	defer db.Close()
	migrateSchema(t, ctx, db)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	store := postgres.NewStore(pool)
	directory := infraredis.NewQuizDirectory(redisClient, store, 5*time.Minute)
	funnel := app.NewFunnelService(store, directory, nil, logging.Discard())
	if err := funnel.SeedQuizzes(ctx, templates.NewBuiltinRegistry().All()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	// Seeding twice keeps ids stable.
	if err := funnel.SeedQuizzes(ctx, templates.NewBuiltinRegistry().All()); err != nil {
		t.Fatalf("reseed: %v", err)
	}

	quizID, err := funnel.ResolveQuizID(ctx, "aprendizagem-ia-criancas")
	if err != nil {
		t.Fatalf("resolve quiz: %v", err)
	}
	session, err := funnel.CreateSession(ctx, quizID)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	for _, ev := range []domain.Event{
		domain.NewEvent(session.ID, domain.EventStepView, "age", nil, time.Now()),
		domain.NewEvent(session.ID, domain.EventStepComplete, "age", nil, time.Now()),
	} {
		if err := funnel.RecordEvent(ctx, ev); err != nil {
			t.Fatalf("record event: %v", err)
		}
	}
	if err := funnel.RecordAnswer(ctx, domain.Answer{SessionID: session.ID, StepID: "age", Question: "Qual a idade do seu filho?", Answer: "7 anos"}); err != nil {
		t.Fatalf("record answer: %v", err)
	}
	if err := funnel.RecordAnswer(ctx, domain.Answer{SessionID: "missing", StepID: "age", Answer: "7 anos"}); err == nil {
		t.Fatalf("expected error for unknown session")
	}
	if _, err := funnel.CompleteSession(ctx, session.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	first, err := funnel.CreateLead(ctx, domain.LeadInput{
		Name:           "Ana",
		Email:          "ana@example.com",
		Phone:          "(11) 98765-4321",
		SessionID:      session.ID,
		AdditionalData: map[string]string{"age": "7 anos"},
	})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	second, err := funnel.CreateLead(ctx, domain.LeadInput{Name: "Ana Souza", Email: "ANA@example.com", SessionID: session.ID})
	if err != nil {
		t.Fatalf("create second lead: %v", err)
	}
	if first.PersonID != second.PersonID || first.LeadID == second.LeadID {
		t.Fatalf("expected one person with two leads, got %+v and %+v", first, second)
	}

	repo := postgres.NewAdminRepository(db)
	stats, err := repo.Dashboard(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.TotalLeads != 2 || stats.TotalSessions != 1 || stats.QuizCompletions != 1 {
		t.Fatalf("unexpected dashboard %+v", stats)
	}

	page, err := repo.Leads(ctx, domain.LeadFilter{Page: 1, PageSize: 10, Search: "souza"})
	if err != nil {
		t.Fatalf("leads: %v", err)
	}
	if page.Total != 2 || page.Leads[0].QuizID != quizID {
		t.Fatalf("expected both leads for the shared person, got %+v", page)
	}

	answers, err := repo.LeadAnswers(ctx, first.LeadID)
	if err != nil {
		t.Fatalf("lead answers: %v", err)
	}
	if len(answers) != 1 || answers[0].Answer != "7 anos" {
		t.Fatalf("unexpected answers %+v", answers)
	}

	activity, err := repo.QuizActivity(ctx, quizID)
	if err != nil {
		t.Fatalf("activity: %v", err)
	}
	if activity.Sessions != 1 || activity.Leads != 2 || len(activity.Steps) != 1 || activity.Steps[0].Views != 1 {
		t.Fatalf("unexpected activity %+v", activity)
	}

	title := "Novo título"
	updated, err := repo.UpdateQuiz(ctx, quizID, domain.QuizUpdate{Title: &title}, time.Now())
	if err != nil {
		t.Fatalf("update quiz: %v", err)
	}
	if updated.Title != title {
		t.Fatalf("expected updated title, got %q", updated.Title)
	}
	if _, err := repo.QuizByID(ctx, "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateSchema(t *testing.T, ctx context.Context, db *bun.DB) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "funnel"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/funnel?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
