package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/LinkLocker-Labs/linklocker-back/internal/auth"
	"github.com/LinkLocker-Labs/linklocker-back/internal/config"
	"github.com/LinkLocker-Labs/linklocker-back/internal/db"
	"github.com/LinkLocker-Labs/linklocker-back/internal/service"
)

type (
	AuthReq struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	TokenResp struct {
		AccessToken string `json:"access_token"`
	}

	UserEditReq struct {
		FirstName *string `json:"firstName"`
		LastName  *string `json:"lastName"`
		Email     *string `json:"email" validate:"omitempty,email"`
	}

	UserResp struct {
		ID        uint64    `json:"id"`
		Email     string    `json:"email"`
		FirstName *string   `json:"firstName,omitempty"`
		LastName  *string   `json:"lastName,omitempty"`
		CreatedAt time.Time `json:"createdAt"`
	}

	BookmarkCreateReq struct {
		Title       string  `json:"title" validate:"required"`
		Link        string  `json:"link" validate:"required,url"`
		Description *string `json:"description"`
	}

	BookmarkEditReq struct {
		Title       *string `json:"title"`
		Link        *string `json:"link" validate:"omitempty,url"`
		Description *string `json:"description"`
	}

	BookmarkResp struct {
		ID          uint64  `json:"id"`
		Title       *string `json:"title,omitempty"`
		Link        *string `json:"link,omitempty"`
		Description *string `json:"description,omitempty"`
		UserID      uint64  `json:"userId"`
	}

	CustomValidator struct {
		validator *validator.Validate
	}

	HTTPServer struct {
		db        *gorm.DB
		auth      *service.Auth
		users     *service.Users
		bookmarks *service.Bookmarks
		tokens    *auth.JWTManager
		logger    *zap.SugaredLogger
	}
)

func NewHTTPServer(
	lc fx.Lifecycle,
	cfg *config.Config,
	database *gorm.DB,
	authSvc *service.Auth,
	userSvc *service.Users,
	bookmarkSvc *service.Bookmarks,
	tokens *auth.JWTManager,
	logger *zap.SugaredLogger,
) *HTTPServer {
	instance := HTTPServer{
		db:        database,
		auth:      authSvc,
		users:     userSvc,
		bookmarks: bookmarkSvc,
		tokens:    tokens,
		logger:    logger,
	}

	e := instance.router()

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				listen := cfg.Host + ":" + cfg.Port
				if err := e.Start(listen); err != nil && err != http.ErrServerClosed {
					e.Logger.Fatal("shutting down the server")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping HTTP server.")
			return e.Shutdown(ctx)
		},
	})

	return &instance
}

func (s *HTTPServer) router() *echo.Echo {
	e := echo.New()

	e.POST("/auth/signup", s.Signup)
	e.POST("/auth/signin", s.Signin)

	e.GET("/users/me", s.UserGet)
	e.PATCH("/users", s.UserEdit)

	bookmarkG := e.Group("/bookmarks")
	bookmarkG.GET("", s.BookmarkList)
	bookmarkG.POST("", s.BookmarkCreate)
	bookmarkG.GET("/:id", s.BookmarkGet)
	bookmarkG.PATCH("/:id", s.BookmarkUpdate)
	bookmarkG.DELETE("/:id", s.BookmarkDelete)

	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })

	e.Use(middleware.CORS())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	}))
	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		s.logger.Infow("request",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"status", c.Response().Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"body", string(censorBody(reqBody)),
		)
	}))
	e.Use(middleware.Recover())

	e.Use(s.AuthMiddleware)

	e.Validator = &CustomValidator{validator: validator.New()}

	echo.NotFoundHandler = func(c echo.Context) error {
		return c.NoContent(http.StatusNotFound)
	}

	return e
}

func (s *HTTPServer) Signup(c echo.Context) error {
	req := AuthReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.auth.Signup(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, TokenResp{AccessToken: token.AccessToken})
}

func (s *HTTPServer) Signin(c echo.Context) error {
	req := AuthReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	token, err := s.auth.Signin(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, TokenResp{AccessToken: token.AccessToken})
}

func (s *HTTPServer) UserGet(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	profile, err := s.users.Get(c.Request().Context(), user.ID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, userResp(profile))
}

func (s *HTTPServer) UserEdit(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := UserEditReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := s.users.Edit(c.Request().Context(), user.ID, service.UserPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, userResp(profile))
}

func (s *HTTPServer) BookmarkList(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	bookmarks, err := s.bookmarks.List(c.Request().Context(), user.ID)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]BookmarkResp, len(bookmarks))
	for i := range bookmarks {
		resp[i] = bookmarkResp(&bookmarks[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *HTTPServer) BookmarkCreate(c echo.Context) error {
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := BookmarkCreateReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	model, err := s.bookmarks.Create(c.Request().Context(), user.ID, req.Title, req.Link, req.Description)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, bookmarkResp(model))
}

func (s *HTTPServer) BookmarkGet(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	model, err := s.bookmarks.Get(c.Request().Context(), user.ID, id)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, bookmarkResp(model))
}

func (s *HTTPServer) BookmarkUpdate(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	req := BookmarkEditReq{}
	if err := BindAndValidate(c, &req); err != nil {
		return err
	}

	model, err := s.bookmarks.Edit(c.Request().Context(), user.ID, id, service.BookmarkPatch{
		Title:       req.Title,
		Link:        req.Link,
		Description: req.Description,
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, bookmarkResp(model))
}

func (s *HTTPServer) BookmarkDelete(c echo.Context) error {
	id, err := GetAndParseParam(c, "id")
	if err != nil {
		return err
	}
	user, err := GetUserFromContext(c)
	if err != nil {
		return err
	}

	if err := s.bookmarks.Delete(c.Request().Context(), user.ID, id); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AuthMiddleware extracts the caller's identity from the Authorization
// header. The token subject must still resolve to an existing user, so
// tokens for deleted users are rejected even before expiry.
func (s *HTTPServer) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Path() == "/auth/signup" || c.Path() == "/auth/signin" || c.Path() == "/ping" {
			return next(c)
		}

		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return c.NoContent(http.StatusUnauthorized)
		}
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if tokenString == header {
			return c.NoContent(http.StatusUnauthorized)
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}
		userID, err := claims.UserID()
		if err != nil {
			return c.NoContent(http.StatusUnauthorized)
		}

		user := db.User{}
		res := s.db.WithContext(c.Request().Context()).First(&user, userID)
		if res.Error != nil {
			c.Logger().Error(errors.Wrap(res.Error, "find user in db"))
			return c.NoContent(http.StatusUnauthorized)
		}

		c.Set("user", &user)
		return next(c)
	}
}

////////

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrCredentialsTaken):
		return echo.NewHTTPError(http.StatusForbidden, service.ErrCredentialsTaken.Error())
	case errors.Is(err, service.ErrCredentialsIncorrect):
		return echo.NewHTTPError(http.StatusForbidden, service.ErrCredentialsIncorrect.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, service.ErrNotFound.Error())
	}
	return err
}

func userResp(profile *service.Profile) UserResp {
	return UserResp{
		ID:        profile.ID,
		Email:     profile.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		CreatedAt: profile.CreatedAt,
	}
}

func bookmarkResp(model *db.Bookmark) BookmarkResp {
	return BookmarkResp{
		ID:          model.ID,
		Title:       model.Title,
		Link:        model.Link,
		Description: model.Description,
		UserID:      model.UserID,
	}
}

// censorBody masks the password field of logged request bodies.
func censorBody(body []byte) []byte {
	parsed := map[string]interface{}{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return body
	}
	if _, ok := parsed["password"]; !ok {
		return body
	}
	parsed["password"] = "$censored"
	censored, err := json.Marshal(parsed)
	if err != nil {
		return body
	}
	return censored
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func BindAndValidate(c echo.Context, v interface{}) error {
	var err error
	if err = c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err = c.Validate(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func GetUserFromContext(c echo.Context) (*db.User, error) {
	user, ok := c.Get("user").(*db.User)
	if !ok || user == nil {
		return nil, errors.New("no user found in context")
	}
	return user, nil
}

func GetParam(c echo.Context, name string) (string, error) {
	value := c.Param(name)
	if value == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return value, nil
}

func GetAndParseParam(c echo.Context, name string) (uint64, error) {
	v, e := GetParam(c, name)
	if e != nil {
		return 0, e
	}
	vv, e := strconv.ParseUint(v, 10, 64)
	if e != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid path param 'id'")
	}
	return vv, nil
}
