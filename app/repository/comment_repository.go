package repository

import (
	"github.com/ManuelReschke/CourseFox/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository instance
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetByID retrieves a comment with its author
func (r *commentRepository) GetByID(id uint) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.Preload("User").First(&comment, id).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListTopLevel returns one page of root comments for a material, newest first
func (r *commentRepository) ListTopLevel(materialID uint, offset, limit int) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{}).Where("material_id = ? AND parent_id IS NULL", materialID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var comments []models.Comment
	err := query.Preload("User").Order("created_at DESC").Offset(offset).Limit(limit).Find(&comments).Error
	return comments, total, err
}

// ListReplies returns the replies of a comment, oldest first
func (r *commentRepository) ListReplies(parentID uint) ([]models.Comment, error) {
	var replies []models.Comment
	err := r.db.Preload("User").Where("parent_id = ?", parentID).Order("created_at ASC").Find(&replies).Error
	return replies, err
}

// CountReplies returns the number of replies per parent comment id
func (r *commentRepository) CountReplies(parentIDs []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(parentIDs))
	if len(parentIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		ParentID uint
		Total    int64
	}
	err := r.db.Model(&models.Comment{}).
		Select("parent_id, COUNT(*) AS total").
		Where("parent_id IN ?", parentIDs).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ParentID] = row.Total
	}
	return out, nil
}

// LikedBy reports which of the given comments the user has liked
func (r *commentRepository) LikedBy(userID uint, commentIDs []uint) (map[uint]bool, error) {
	out := make(map[uint]bool, len(commentIDs))
	if userID == 0 || len(commentIDs) == 0 {
		return out, nil
	}
	var ids []uint
	err := r.db.Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// Like records a like and bumps the counter. It returns false when the user already liked the comment.
func (r *commentRepository) Like(commentID, userID uint) (bool, error) {
	created := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CommentLike{CommentID: commentID, UserID: userID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		return tx.Model(&models.Comment{}).Where("id = ?", commentID).
			UpdateColumn("likes", gorm.Expr("likes + 1")).Error
	})
	return created, err
}

// Unlike removes a like and lowers the counter. It returns false when there was nothing to remove.
func (r *commentRepository) Unlike(commentID, userID uint) (bool, error) {
	removed := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return tx.Model(&models.Comment{}).Where("id = ? AND likes > 0", commentID).
			UpdateColumn("likes", gorm.Expr("likes - 1")).Error
	})
	return removed, err
}

// Delete soft-deletes a comment together with its replies
func (r *commentRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
}
