// Package web serves the OAuth-gated admin dashboard: member roster,
// settings form and warning management.
package web

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"guildgate/internal/config"
	"guildgate/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

//go:embed templates/*.html
var templatesFS embed.FS

const fallbackAvatarURL = "https://cdn.discordapp.com/embed/avatars/0.png"

type Server struct {
	cfg       config.WebConfig
	guildID   string
	logger    *zap.Logger
	store     *storage.Store
	directory GuildDirectory
	sessions  *sessions.CookieStore
	oauth     *oauth2.Config
	router    *gin.Engine
}

func New(cfg config.WebConfig, guildID string, store *storage.Store, directory GuildDirectory, logger *zap.Logger) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)

	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	cookieStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
	}

	s := &Server{
		cfg:       cfg,
		guildID:   guildID,
		logger:    logger,
		store:     store,
		directory: directory,
		sessions:  cookieStore,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(tmpl)

	router.GET("/", s.loginPage)
	router.GET("/auth/discord", s.authRedirect)
	router.GET("/auth/discord/callback", s.authCallback)

	authed := router.Group("/", s.requireLogin)
	authed.GET("/dashboard", s.dashboard)
	authed.GET("/settings", s.settingsPage)
	authed.POST("/save", s.saveSettings)
	authed.POST("/warnings/add", s.addWarning)
	authed.POST("/warnings/clear", s.clearWarnings)

	s.router = router
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", gin.H{})
}

type memberRow struct {
	UserID        string
	DisplayName   string
	AvatarURL     string
	ExternalNick  string
	ExternalID    string
	LastMessageAt string
	WarningCount  int
	IsMember      bool
}

// dashboard merges stored member records with the live roster. A member no
// longer resolvable in the guild falls back to the last known username.
func (s *Server) dashboard(c *gin.Context) {
	records, err := s.store.ListMembers(c.Request.Context())
	if err != nil {
		s.logger.Warn("member list failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "erro ao listar membros")
		return
	}

	rows := make([]memberRow, 0, len(records))
	for _, record := range records {
		row := memberRow{
			UserID:       record.UserID,
			DisplayName:  record.Username,
			AvatarURL:    fallbackAvatarURL,
			ExternalNick: record.ExternalNick,
			ExternalID:   record.ExternalID,
			WarningCount: record.WarningCount,
			IsMember:     record.IsMember,
		}
		if !record.LastMessageAt.IsZero() {
			row.LastMessageAt = record.LastMessageAt.Format(time.RFC822)
		}
		if profile, ok := s.directory.MemberProfile(record.UserID); ok {
			row.DisplayName = profile.DisplayName
			if profile.AvatarURL != "" {
				row.AvatarURL = profile.AvatarURL
			}
		}
		rows = append(rows, row)
	}

	c.HTML(http.StatusOK, "dashboard.html", gin.H{"Members": rows})
}

func (s *Server) settingsPage(c *gin.Context) {
	roles, err := s.directory.RoleOptions()
	if err != nil {
		s.logger.Warn("role list failed", zap.Error(err))
	}
	channels, err := s.directory.ChannelOptions()
	if err != nil {
		s.logger.Warn("channel list failed", zap.Error(err))
	}

	cfg, err := s.store.GetGuildConfig(c.Request.Context(), s.guildID)
	if err != nil {
		s.logger.Warn("guild config read failed", zap.Error(err))
	}

	c.HTML(http.StatusOK, "settings.html", gin.H{
		"Roles":       roles,
		"Channels":    channels,
		"Config":      cfg,
		"DefaultText": storage.DefaultWarAnnouncement,
	})
}

// saveSettings upserts the whole config from the form. Empty selects mean
// "unset", never "keep previous".
func (s *Server) saveSettings(c *gin.Context) {
	cfg := storage.GuildConfig{
		GuildID:             s.guildID,
		RoleToRemove:        c.PostForm("remove_role"),
		GrantRole1:          c.PostForm("grant_role_1"),
		GrantRole2:          c.PostForm("grant_role_2"),
		AnnouncementChannel: c.PostForm("announce_channel"),
		VerificationChannel: c.PostForm("verify_channel"),
		AnnouncementText:    c.PostForm("announce_text"),
	}
	if err := s.store.UpsertGuildConfig(c.Request.Context(), cfg); err != nil {
		s.logger.Warn("guild config save failed", zap.Error(err))
		c.String(http.StatusInternalServerError, "erro ao salvar configuração")
		return
	}
	c.Redirect(http.StatusFound, "/settings")
}

func (s *Server) addWarning(c *gin.Context) {
	userID := c.PostForm("user_id")
	reason := c.PostForm("reason")
	if userID == "" || reason == "" {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	if err := s.store.AddWarning(c.Request.Context(), userID, reason, time.Now()); err != nil {
		s.logger.Warn("warning add failed", zap.String("user_id", userID), zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) clearWarnings(c *gin.Context) {
	userID := c.PostForm("user_id")
	if userID == "" {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}
	if err := s.store.ClearWarnings(c.Request.Context(), userID); err != nil {
		s.logger.Warn("warning clear failed", zap.String("user_id", userID), zap.Error(err))
	}
	c.Redirect(http.StatusFound, "/dashboard")
}
