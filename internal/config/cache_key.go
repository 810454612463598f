package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the active login JTI of a user.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("login:%s", userID)
}

// CourseCatalogKey returns the cache key for the serialized course catalog.
func (r *CacheKeyStruct) CourseCatalogKey() string {
	return "courses:catalog"
}

// LearningEventsChannel returns the PubSub channel carrying state changes of one learning session.
func (r *CacheKeyStruct) LearningEventsChannel(sessionID string) string {
	return fmt.Sprintf("learning:%s:events", sessionID)
}

// TeacherActivityChannel returns the PubSub channel with learning activity of a teacher's students.
func (r *CacheKeyStruct) TeacherActivityChannel(teacherID string) string {
	return fmt.Sprintf("teacher:%s:activity", teacherID)
}

var CacheKey = NewCacheKeyStruct()
