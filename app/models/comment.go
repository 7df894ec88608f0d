package models

import (
	"time"

	"gorm.io/gorm"
)

type Comment struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	UserID       uint           `gorm:"index" json:"userId"`
	User         *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	MaterialID   uint           `gorm:"index" json:"materialId"`
	ParentID     *uint          `gorm:"index" json:"parentId,omitempty"`
	Content      string         `gorm:"type:text" json:"content" validate:"required,min=1,max=5000"`
	Likes        int            `gorm:"not null;default:0" json:"likes"`
	IsInstructor bool           `gorm:"not null;default:false" json:"isInstructor"`
	ReplyCount   int64          `gorm:"-" json:"replyCount"`
	LikedByMe    bool           `gorm:"-" json:"likedByMe"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// CommentLike records that a user liked a comment. One row per (comment, user).
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CommentID uint      `gorm:"not null;index:ux_comment_likes_comment_user,unique,priority:1" json:"commentId"`
	UserID    uint      `gorm:"not null;index:ux_comment_likes_comment_user,unique,priority:2;index" json:"userId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
