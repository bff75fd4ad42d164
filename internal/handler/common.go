package handler // handler holds the Echo HTTP handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/go-playground/validator/v10"
    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-booking/internal/middleware"
    "github.com/iliyamo/cinema-booking/internal/repository"
)

// CustomValidator plugs go-playground/validator into Echo so handlers can
// call c.Validate on bound request bodies.
type CustomValidator struct {
    v *validator.Validate
}

// NewValidator returns the validator registered on the Echo instance.
func NewValidator() *CustomValidator {
    return &CustomValidator{v: validator.New()}
}

func (cv *CustomValidator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// bindAndValidate binds the request body into dst and validates it.  On
// failure it writes the 400 response and returns false.
func bindAndValidate(c echo.Context, dst interface{}) (bool, error) {
    if err := c.Bind(dst); err != nil {
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if err := c.Validate(dst); err != nil {
        var verrs validator.ValidationErrors
        if errors.As(err, &verrs) && len(verrs) > 0 {
            fe := verrs[0]
            return false, c.JSON(http.StatusBadRequest, echo.Map{
                "error": "invalid field " + fe.Field() + ": " + fe.Tag(),
            })
        }
        return false, c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
    }
    return true, nil
}

// getUserID extracts the caller's user id set by JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
    if id, ok := middleware.UserID(c); ok {
        return id, nil
    }
    return 0, errors.New("invalid user_id in context")
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    n, err := strconv.ParseUint(c.Param(name), 10, 64)
    return n, err == nil && n > 0
}

// respondError maps service errors to HTTP responses.  Seat conflicts and
// unknown seats name the offending seat.
func respondError(c echo.Context, err error) error {
    body := echo.Map{"error": err.Error()}
    if id, ok := repository.SeatIDOf(err); ok {
        body["seat_id"] = id
    }
    switch {
    case errors.Is(err, repository.ErrValidation):
        return c.JSON(http.StatusBadRequest, body)
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, body)
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, body)
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, body)
    case errors.Is(err, repository.ErrInvalidState):
        return c.JSON(http.StatusUnprocessableEntity, body)
    }
    logrus.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
