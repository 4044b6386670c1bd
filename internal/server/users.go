package server

import (
	"encoding/json"
	"io"
	"net/http"

	"jibunshi/internal/app"
	"jibunshi/pkg/domain"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many registration attempts") {
		s.audit(r, "users.register", "rate_limited")
		return
	}
	var req registerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		s.audit(r, "users.register", "fail", "reason", "invalid_json")
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.app.Register(app.RegisterInput{
		Name:       req.Name,
		Age:        req.Age,
		BirthMonth: firstInt(req.BirthMonth, req.BirthMonthAlt),
		BirthDay:   firstInt(req.BirthDay, req.BirthDayAlt),
		PIN:        req.PIN,
	})
	if err != nil {
		s.audit(r, "users.register", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "users.register", "success", "user_id", user.ID)
	writeJSON(w, http.StatusCreated, userResponse{User: user})
}

func (s *Server) handleCheckName(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many login attempts") {
		s.audit(r, "users.check_name", "rate_limited")
		return
	}
	var req checkNameRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, err := s.app.CheckName(req.Name)
	if err != nil {
		s.audit(r, "users.check_name", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "users.check_name", "success", "count", result.Count)
	resp := checkNameResponse{Count: result.Count}
	if result.UserID != "" {
		resp.UserID = result.UserID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckBirthday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many login attempts") {
		s.audit(r, "users.check_birthday", "rate_limited")
		return
	}
	var req checkBirthdayRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	userID, err := s.app.CheckBirthday(req.Name, firstInt(req.BirthMonth, req.BirthMonthAlt), firstInt(req.BirthDay, req.BirthDayAlt))
	if err != nil {
		s.audit(r, "users.check_birthday", "fail", "reason", err.Error())
		writeAppError(w, err)
		return
	}
	s.audit(r, "users.check_birthday", "success", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"userId": userID})
}

func (s *Server) handleVerifyPIN(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.authLimiter, "too many login attempts") {
		s.audit(r, "users.verify_pin", "rate_limited")
		return
	}
	var req verifyPINRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	login, err := s.app.VerifyPIN(firstString(req.UserID, req.UserIDAlt), req.PIN)
	if err != nil {
		s.audit(r, "users.verify_pin", "fail", "reason", "invalid_credentials")
		writeAppError(w, err)
		return
	}
	s.audit(r, "users.verify_pin", "success", "user_id", login.User.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     login.Token,
		ExpiresAt: login.ExpiresAt.Unix(),
		User:      login.User,
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, userResponse{User: user})
	case http.MethodDelete:
		if err := s.app.DeleteUser(user.ID); err != nil {
			s.audit(r, "users.delete", "fail", "user_id", user.ID, "reason", err.Error())
			writeAppError(w, err)
			return
		}
		s.audit(r, "users.delete", "success", "user_id", user.ID)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

// firstInt returns the first non-zero value, normalizing camelCase and
// snake_case aliases for the same logical field.
func firstInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type registerRequest struct {
	Name          string `json:"name"`
	Age           int    `json:"age"`
	BirthMonth    int    `json:"birthMonth"`
	BirthMonthAlt int    `json:"birth_month"`
	BirthDay      int    `json:"birthDay"`
	BirthDayAlt   int    `json:"birth_day"`
	PIN           string `json:"pin"`
}

type checkNameRequest struct {
	Name string `json:"name"`
}

type checkNameResponse struct {
	Count  int    `json:"count"`
	UserID string `json:"userId,omitempty"`
}

type checkBirthdayRequest struct {
	Name          string `json:"name"`
	BirthMonth    int    `json:"birthMonth"`
	BirthMonthAlt int    `json:"birth_month"`
	BirthDay      int    `json:"birthDay"`
	BirthDayAlt   int    `json:"birth_day"`
}

type verifyPINRequest struct {
	UserID    string `json:"userId"`
	UserIDAlt string `json:"user_id"`
	PIN       string `json:"pin"`
}

type userResponse struct {
	User domain.User `json:"user"`
}

type loginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expiresAt"`
	User      domain.User `json:"user"`
}
