package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const sessionName = "guildgate_session"

const identityURL = "https://discord.com/api/users/@me"

type identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (s *Server) authRedirect(c *gin.Context) {
	state := randomState()

	session, _ := s.sessions.Get(c.Request, sessionName)
	session.Values["state"] = state
	if err := session.Save(c.Request, c.Writer); err != nil {
		s.logger.Warn("session save failed", zap.Error(err))
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.Redirect(http.StatusFound, s.oauth.AuthCodeURL(state))
}

func (s *Server) authCallback(c *gin.Context) {
	session, _ := s.sessions.Get(c.Request, sessionName)
	want, _ := session.Values["state"].(string)
	if want == "" || c.Query("state") != want {
		c.Redirect(http.StatusFound, "/")
		return
	}

	token, err := s.oauth.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		s.logger.Warn("oauth exchange failed", zap.Error(err))
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := s.fetchIdentity(c, token)
	if err != nil {
		s.logger.Warn("identity fetch failed", zap.Error(err))
		c.Redirect(http.StatusFound, "/")
		return
	}

	delete(session.Values, "state")
	session.Values["user_id"] = user.ID
	session.Values["user_name"] = user.Username
	if err := session.Save(c.Request, c.Writer); err != nil {
		s.logger.Warn("session save failed", zap.Error(err))
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.Redirect(http.StatusFound, "/dashboard")
}

func (s *Server) fetchIdentity(c *gin.Context, token *oauth2.Token) (identity, error) {
	client := s.oauth.Client(c.Request.Context(), token)
	resp, err := client.Get(identityURL)
	if err != nil {
		return identity{}, err
	}
	defer resp.Body.Close()

	var user identity
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return identity{}, err
	}
	return user, nil
}

// requireLogin redirects anonymous requests to the login page rather than
// returning an error.
func (s *Server) requireLogin(c *gin.Context) {
	session, _ := s.sessions.Get(c.Request, sessionName)
	userID, _ := session.Values["user_id"].(string)
	if userID == "" {
		c.Redirect(http.StatusFound, "/")
		c.Abort()
		return
	}
	c.Next()
}

func randomState() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
