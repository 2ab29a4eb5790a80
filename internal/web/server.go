// Package web serves the OpenRank leaderboard app: sign in with portal
// credentials, see where you rank, admins can refresh everyone.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/aravhawk/openrank/internal/scrapers/homeaccess"
	"github.com/aravhawk/openrank/internal/service"
	"github.com/aravhawk/openrank/internal/store"
	"github.com/aravhawk/openrank/internal/telemetry"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	report_render      = "web.render"
	report_bulkrefresh = "web.bulk-refresh"
)

const sessionCookie = "openrank_session"

const sessionTTL = 12 * time.Hour

//go:embed templates/*.html
var templatesFS embed.FS

func parseTemplates() *template.Template {
	return template.Must(template.New("").Funcs(template.FuncMap{
		"add1":  func(i int) int { return i + 1 },
		"deref": func(f *float64) float64 { return *f },
		"humandate": func(t *time.Time) string {
			if t == nil {
				return "Never"
			}
			return t.Local().Format("Jan 02, 2006 3:04 PM")
		},
	}).ParseFS(templatesFS, "templates/*.html"))
}

type Server struct {
	svc             *service.Service
	store           store.Store
	sessions        *sessionManager
	defaultDistrict string
	tel             telemetry.API
}

func NewServer(svc *service.Service, st store.Store, defaultDistrict string, tel telemetry.API) *Server {
	if defaultDistrict == "" {
		defaultDistrict = homeaccess.DefaultDistrict
	}
	return &Server{
		svc:             svc,
		store:           st,
		sessions:        newSessionManager(sessionTTL),
		defaultDistrict: defaultDistrict,
		tel:             telemetry.NewScopedAPI("web", tel),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(parseTemplates())

	router.GET("/", s.home)
	router.GET("/login", s.loginPage)
	router.POST("/login", s.login)
	router.POST("/logout", s.logout)
	router.GET("/leaderboard", s.leaderboard)
	router.POST("/admin/refresh", s.adminRefresh)

	return router
}

func (s *Server) currentSession(c *gin.Context) (string, session, bool) {
	token, err := c.Cookie(sessionCookie)
	if err != nil {
		return "", session{}, false
	}
	sess, ok := s.sessions.get(token)
	return token, sess, ok
}

func (s *Server) setSessionCookie(c *gin.Context, token string) {
	c.SetCookie(sessionCookie, token, int(sessionTTL.Seconds()), "/", "", false, true)
}

type loginPageData struct {
	District    string
	Districts   []homeaccess.District
	Username    string
	DisplayName string
	Error       string
	Flashes     []Flash
}

func (s *Server) home(c *gin.Context) {
	if _, _, ok := s.currentSession(c); ok {
		c.Redirect(http.StatusFound, "/leaderboard")
		return
	}
	c.Redirect(http.StatusFound, "/login")
}

func (s *Server) loginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", loginPageData{
		District:  s.defaultDistrict,
		Districts: homeaccess.KnownDistricts(),
	})
}

func (s *Server) renderLoginError(c *gin.Context, data loginPageData, message string) {
	data.Error = message
	if data.District == "" {
		data.District = s.defaultDistrict
	}
	data.Districts = homeaccess.KnownDistricts()
	c.HTML(http.StatusOK, "login.html", data)
}

func (s *Server) login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	district := strings.TrimSpace(c.PostForm("district"))
	displayName := strings.TrimSpace(c.PostForm("display_name"))
	if district == "" {
		district = s.defaultDistrict
	}

	data := loginPageData{
		District:    district,
		Username:    username,
		DisplayName: displayName,
	}

	if username == "" || password == "" {
		s.renderLoginError(c, data, "Please provide both username and password.")
		return
	}

	// local admin accounts never hit the portal
	admin, isAdmin, err := s.store.GetAdmin(c.Request.Context(), username)
	if err != nil {
		s.tel.ReportBroken(report_render, err)
		s.renderLoginError(c, data, "Something went wrong. Please try again.")
		return
	}
	if isAdmin {
		err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password))
		if err != nil {
			s.renderLoginError(c, data, "Incorrect password for admin account.")
			return
		}
		s.startSession(c, username, RoleAdmin, "Welcome back, administrator!")
		return
	}

	// an existing student must present their stored password before the
	// portal gets bothered at all
	existing, found, err := s.store.Get(c.Request.Context(), username)
	if err != nil {
		s.tel.ReportBroken(report_render, err)
		s.renderLoginError(c, data, "Something went wrong. Please try again.")
		return
	}
	if found && existing.Password != password {
		s.renderLoginError(c, data, "Incorrect password. Please try again.")
		return
	}

	_, err = s.svc.RefreshStudent(c.Request.Context(), district, username, password, displayName)
	if err != nil {
		s.renderLoginError(c, data, service.UserMessage(err))
		return
	}

	s.startSession(c, username, RoleStudent, "GPA refreshed and leaderboard updated!")
}

func (s *Server) startSession(c *gin.Context, username string, role Role, greeting string) {
	token, err := s.sessions.create(username, role)
	if err != nil {
		s.tel.ReportBroken(report_render, err)
		s.renderLoginError(c, loginPageData{Username: username}, "Something went wrong. Please try again.")
		return
	}
	s.sessions.addFlash(token, "success", greeting)
	s.setSessionCookie(c, token)
	c.Redirect(http.StatusFound, "/leaderboard")
}

func (s *Server) logout(c *gin.Context) {
	if token, _, ok := s.currentSession(c); ok {
		s.sessions.delete(token)
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/login")
}

type leaderboardPageData struct {
	Students    []store.StudentRecord
	CurrentUser string
	IsAdmin     bool
	Flashes     []Flash
}

func (s *Server) leaderboard(c *gin.Context) {
	token, sess, ok := s.currentSession(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}

	students, err := s.svc.Leaderboard(c.Request.Context())
	if err != nil {
		s.tel.ReportBroken(report_render, err)
		c.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	c.HTML(http.StatusOK, "leaderboard.html", leaderboardPageData{
		Students:    students,
		CurrentUser: sess.Username,
		IsAdmin:     sess.Role == RoleAdmin,
		Flashes:     s.sessions.takeFlashes(token),
	})
}

func (s *Server) adminRefresh(c *gin.Context) {
	token, sess, ok := s.currentSession(c)
	if !ok {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	if sess.Role != RoleAdmin {
		s.sessions.addFlash(token, "error", "Admin access required.")
		c.Redirect(http.StatusFound, "/leaderboard")
		return
	}

	report, err := s.svc.RefreshAll(c.Request.Context())
	if err != nil {
		s.tel.ReportBroken(report_bulkrefresh, err)
		s.sessions.addFlash(token, "error", "Could not refresh students. Please try again.")
		c.Redirect(http.StatusFound, "/leaderboard")
		return
	}

	if len(report.Succeeded) == 0 && len(report.Failed) == 0 {
		s.sessions.addFlash(token, "info", "No students to refresh yet.")
	}
	if len(report.Succeeded) > 0 {
		s.sessions.addFlash(token, "success", fmt.Sprintf(
			"Refreshed GPA for: %s", strings.Join(report.Succeeded, ", "),
		))
	}
	if len(report.Failed) > 0 {
		names := make([]string, len(report.Failed))
		for i, failure := range report.Failed {
			names[i] = failure.Username
		}
		s.sessions.addFlash(token, "error", fmt.Sprintf(
			"Unable to refresh: %s", strings.Join(names, ", "),
		))
	}

	c.Redirect(http.StatusFound, "/leaderboard")
}
