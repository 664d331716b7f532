package service

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-planner-api/internal/models"
	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

var (
	studentIDFields    = []string{"rut", "studentRut", "student_rut"}
	studentEmailFields = []string{"email", "correo", "correoPersonal", "correoInstitucional"}
	studentNameFields  = []string{"nombre", "nombres", "nombreCompleto", "nombre_completo", "fullname"}

	nonStudentIDChars = regexp.MustCompile(`[^0-9kK]`)
)

type identityFeed interface {
	Login(ctx context.Context, username, password string) (map[string]interface{}, error)
}

type authStudentRepository interface {
	Upsert(ctx context.Context, student *models.Student) (bool, error)
}

// AuthConfig defines configuration for issued access tokens.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// AuthService relays logins to the identity feed, keeps student records fresh and issues tokens.
type AuthService struct {
	identity  identityFeed
	students  authStudentRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(identity identityFeed, students authStudentRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 24 * time.Hour
	}
	return &AuthService{identity: identity, students: students, validator: validate, logger: logger, config: config}
}

// Login authenticates against the identity feed and returns an access token for the first student profile.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	profile, err := s.identity.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return nil, err
	}

	students := ExtractStudents(profile)
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrUpstream, "identity profile carries no student record")
	}

	for i := range students {
		written, err := s.students.Upsert(ctx, &students[i])
		if err != nil {
			s.logger.Warn("failed to upsert student from login", zap.String("student_id", students[i].ID), zap.Error(err))
			continue
		}
		if written {
			s.logger.Info("student record refreshed", zap.String("student_id", students[i].ID))
		}
	}

	primary := students[0]
	token, expiresAt, err := s.generateAccessToken(primary)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		StudentID:   primary.ID,
		Students:    students,
		Profile:     profile,
	}, nil
}

// ValidateToken parses and validates a JWT string.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}

	return claims, nil
}

func (s *AuthService) generateAccessToken(student models.Student) (string, time.Time, error) {
	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(s.config.AccessTokenExpiry)
	claims := &models.JWTClaims{
		UserID: student.ID,
		Role:   models.RoleStudent,
		Email:  student.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   student.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ExtractStudents reads student profiles out of a login payload. Profiles come
// from "estudiantes", "estudiante" (array or object) or the payload itself.
// Missing emails fall back to the institutional address and missing names to the id.
func ExtractStudents(payload map[string]interface{}) []models.Student {
	if payload == nil {
		return nil
	}

	var sources []map[string]interface{}
	collect := func(v interface{}) {
		switch val := v.(type) {
		case []interface{}:
			for _, item := range val {
				if obj, ok := item.(map[string]interface{}); ok {
					sources = append(sources, obj)
				}
			}
		case map[string]interface{}:
			sources = append(sources, val)
		}
	}
	if list, ok := payload["estudiantes"].([]interface{}); ok {
		collect(list)
	}
	collect(payload["estudiante"])
	if len(sources) == 0 {
		sources = append(sources, payload)
	}

	user, _ := payload["usuario"].(map[string]interface{})
	seen := make(map[string]struct{}, len(sources))
	students := make([]models.Student, 0, len(sources))
	for _, source := range sources {
		id := firstProfileValue(studentIDFields, source, payload)
		if id == "" {
			id = profileString(user, "rut")
		}
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		email := firstProfileValue(studentEmailFields, source, payload)
		if email == "" {
			email = profileString(user, "email")
		}
		if email == "" {
			email = strings.ToLower(nonStudentIDChars.ReplaceAllString(id, "")) + "@alumnos.ucn.cl"
		}

		name := firstProfileValue(studentNameFields, source, payload)
		if name == "" {
			name = profileString(user, "nombre")
		}
		if name == "" {
			name = id
		}

		students = append(students, models.Student{ID: id, Name: name, Email: email})
	}
	return students
}

// firstProfileValue checks the source first, then the top-level payload, for each candidate field.
func firstProfileValue(fields []string, source, payload map[string]interface{}) string {
	for _, obj := range []map[string]interface{}{source, payload} {
		for _, field := range fields {
			if value := profileString(obj, field); value != "" {
				return value
			}
		}
	}
	return ""
}

func profileString(obj map[string]interface{}, field string) string {
	if obj == nil {
		return ""
	}
	switch val := obj[field].(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}
