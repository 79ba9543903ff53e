package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ariesizone2311/tgworkhoursbot/internal/config"
	"github.com/ariesizone2311/tgworkhoursbot/internal/domain"
	"github.com/ariesizone2311/tgworkhoursbot/internal/rollover"
	"github.com/ariesizone2311/tgworkhoursbot/internal/scheduler"
	"github.com/ariesizone2311/tgworkhoursbot/internal/store"
	"github.com/ariesizone2311/tgworkhoursbot/internal/telegram"
	"github.com/ariesizone2311/tgworkhoursbot/internal/tracker"
)

type App struct {
	cfg     config.Config
	log     *zap.Logger
	bot     *tgbotapi.BotAPI
	httpSrv *http.Server
	repo    store.Repo
	router  *telegram.Router
}

func New(cfg config.Config, log *zap.Logger) (*App, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, err
	}
	bot.Debug = false

	return &App{cfg: cfg, log: log, bot: bot}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.log.Info("starting workhours-bot",
		zap.String("tz", a.cfg.DefaultTZ),
		zap.String("week_start", a.cfg.WeekStart),
		zap.String("http", a.cfg.HTTPAddr),
	)

	weekStart, err := domain.ParseWeekStart(a.cfg.WeekStart)
	if err != nil {
		return err
	}
	cal, err := domain.NewCalendar(a.cfg.DefaultTZ, weekStart)
	if err != nil {
		return err
	}

	// Open SQLite and run migrations.
	repo, err := store.OpenSQLite(ctx, a.cfg.DBPath)
	if err != nil {
		a.log.Error("open sqlite failed", zap.Error(err))
		return err
	}
	a.repo = repo
	a.log.Info("sqlite ready")

	trk := tracker.New(repo, cal, a.cfg.DefaultRate, a.log)
	a.router = telegram.NewRouter(a.bot, a.log, trk, a.cfg.AdminChatID, a.cfg.Currency)

	// The engine delivers through the router, and the router exposes the
	// engine behind the /rollover admin command.
	eng := rollover.New(repo, trk, a.router, a.cfg.RolloverLockTTL, a.cfg.Currency, a.log)
	a.router.AttachRollover(eng)

	a.httpSrv = a.newHTTPServer(eng)
	go func() {
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("http server error", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go scheduler.New(eng, a.log, a.cfg.RolloverPoll).Run(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updCh := a.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			a.log.Info("shutdown signal received")

			shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := a.httpSrv.Shutdown(shCtx)
			cancel()

			if err != nil {
				a.log.Warn("http server shutdown error", zap.Error(err))
			}
			if a.repo != nil {
				_ = a.repo.Close()
			}
			return nil

		case upd := <-updCh:
			a.router.HandleUpdate(ctx, upd)
		}
	}
}

// newHTTPServer builds the small admin surface: liveness plus the
// idempotent manual rollover trigger. The trigger shares the engine (and
// therefore the lock) with the scheduler and the bot command.
func (a *App) newHTTPServer(eng *rollover.Engine) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/rollover", func(c *gin.Context) {
		rep, err := eng.Run(c.Request.Context(), time.Now().UTC())
		if err != nil {
			a.log.Error("http rollover failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "rollover failed"})
			return
		}
		c.JSON(http.StatusOK, rep)
	})

	return &http.Server{
		Addr:         a.cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
