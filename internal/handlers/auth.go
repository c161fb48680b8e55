package handlers

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "golang.org/x/crypto/bcrypt"
    "isp-netops.com/engine/internal/middleware"
    "isp-netops.com/engine/internal/models"
)

type LoginRequest struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}

type RegisterRequest struct {
    Email    string `json:"email"`
    Password string `json:"password"`
    FullName string `json:"full_name"`
    Role     string `json:"role"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
    var req LoginRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.Email == "" || req.Password == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Email and password are required"})
        return
    }

    var user models.User
    err := h.db.QueryRow(
        "SELECT id, email, password_hash, role, full_name, is_active FROM users WHERE email = $1",
        req.Email,
    ).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.Role, &user.FullName, &user.IsActive)

    if err != nil {
        h.logger.Warn("Login failed - user not found", "email", req.Email)
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
        return
    }

    if !user.IsActive {
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Account is disabled"})
        return
    }

    if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
        h.logger.Warn("Login failed - invalid password", "email", req.Email)
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid credentials"})
        return
    }

    token, err := h.generateJWT(user.ID, user.Email, user.Role)
    if err != nil {
        h.logger.Error("Failed to generate JWT", "error", err)
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to generate token"})
        return
    }

    h.logger.Info("User logged in", "user_id", user.ID, "email", user.Email)

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "Login successful",
        Data: map[string]interface{}{
            "token": token,
            "user": map[string]interface{}{
                "id":        user.ID,
                "email":     user.Email,
                "role":      user.Role,
                "full_name": user.FullName.String,
            },
        },
    })
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
    var req RegisterRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.Email == "" || req.Password == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Email and password are required"})
        return
    }

    if len(req.Password) < 8 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Password must be at least 8 characters"})
        return
    }

    if req.Role == "" {
        req.Role = "operator"
    }

    validRoles := map[string]bool{"admin": true, "noc": true, "operator": true}
    if !validRoles[req.Role] {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid role"})
        return
    }

    hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to process password"})
        return
    }

    var userID int
    err = h.db.QueryRow(
        "INSERT INTO users (email, password_hash, role, full_name) VALUES ($1, $2, $3, $4) RETURNING id",
        req.Email, string(hashedPassword), req.Role, req.FullName,
    ).Scan(&userID)

    if err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Email already exists"})
        return
    }

    token, _ := h.generateJWT(userID, req.Email, req.Role)

    h.logger.Info("User registered", "user_id", userID, "email", req.Email, "role", req.Role)

    h.sendJSON(w, http.StatusCreated, Response{
        Success: true,
        Message: "User registered successfully",
        Data: map[string]interface{}{
            "token":   token,
            "user_id": userID,
        },
    })
}

func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
    claims := middleware.GetUserFromContext(r)
    if claims == nil {
        h.sendJSON(w, http.StatusUnauthorized, Response{Success: false, Error: "Invalid token"})
        return
    }

    token, err := h.generateJWT(claims.UserID, claims.Email, claims.Role)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to refresh token"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Data:    map[string]string{"token": token},
    })
}

func (h *Handler) generateJWT(userID int, email, role string) (string, error) {
    claims := middleware.Claims{
        UserID: userID,
        Email:  email,
        Role:   role,
        RegisteredClaims: jwt.RegisteredClaims{
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
            IssuedAt:  jwt.NewNumericDate(time.Now()),
        },
    }

    token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    return token.SignedString([]byte(h.cfg.JWTSecret))
}
