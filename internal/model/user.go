package model

import "time"

// Role distinguishes the two kinds of portal users.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// User is an account that can sign in to the portal.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RegisterRequest is the payload for creating an account.
// Students must also give their grade and the name of an existing teacher.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email,max=255"`
	Password    string `json:"password" binding:"required,min=6,max=128"`
	FullName    string `json:"full_name" binding:"required,notblank,max=100"`
	Role        Role   `json:"role" binding:"required,oneof=student teacher"`
	Grade       int    `json:"grade" binding:"omitempty,min=1,max=12"`
	TeacherName string `json:"teacher_name" binding:"max=100"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token   string   `json:"token"`
	User    User     `json:"user"`
	Student *Student `json:"student,omitempty"`
}

// Profile is returned by GET /auth/me.
type Profile struct {
	User    User     `json:"user"`
	Student *Student `json:"student,omitempty"`
}
