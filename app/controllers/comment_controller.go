package controllers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/avatar"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

type CommentController struct {
	comments  repository.CommentRepository
	materials repository.MaterialRepository
}

func NewCommentController(repos *repository.Repositories) *CommentController {
	return &CommentController{comments: repos.Comment, materials: repos.Material}
}

type commentAuthor struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type commentView struct {
	ID           uint           `json:"id"`
	MaterialID   uint           `json:"materialId"`
	ParentID     *uint          `json:"parentId,omitempty"`
	Content      string         `json:"content"`
	Likes        int            `json:"likes"`
	IsInstructor bool           `json:"isInstructor"`
	ReplyCount   int64          `json:"replyCount"`
	LikedByMe    bool           `json:"likedByMe"`
	Author       *commentAuthor `json:"author,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

func toCommentView(cm *models.Comment) commentView {
	v := commentView{
		ID:           cm.ID,
		MaterialID:   cm.MaterialID,
		ParentID:     cm.ParentID,
		Content:      cm.Content,
		Likes:        cm.Likes,
		IsInstructor: cm.IsInstructor,
		ReplyCount:   cm.ReplyCount,
		LikedByMe:    cm.LikedByMe,
		CreatedAt:    cm.CreatedAt,
	}
	if cm.User != nil {
		v.Author = &commentAuthor{ID: cm.User.ID, Name: cm.User.Name, AvatarURL: avatar.URL(cm.User.AvatarURL, cm.User.Email, 0)}
	}
	return v
}

type createCommentRequest struct {
	Content  string `json:"content" validate:"required,max=5000"`
	ParentID *uint  `json:"parentId"`
}

// HandleCreate posts a comment or a reply on a material. Replies must point at
// a top level comment of the same material.
func (cc *CommentController) HandleCreate(c *fiber.Ctx) error {
	materialID, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}
	var req createCommentRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return jsonError(c, fiber.StatusBadRequest, "validation_failed", "content failed required")
	}

	if req.ParentID != nil {
		parent, err := cc.comments.GetByID(*req.ParentID)
		if err != nil {
			if isNotFound(err) {
				return jsonError(c, fiber.StatusNotFound, "not_found", "parent comment not found")
			}
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load parent comment")
		}
		if parent.MaterialID != materialID || parent.ParentID != nil {
			return jsonError(c, fiber.StatusBadRequest, "invalid_parent", "replies must target a top level comment on the same material")
		}
	}

	uc := usercontext.GetUserContext(c)
	comment := &models.Comment{
		UserID:       uc.UserID,
		MaterialID:   materialID,
		ParentID:     req.ParentID,
		Content:      content,
		IsInstructor: uc.IsAdmin,
	}
	if err := cc.comments.Create(comment); err != nil {
		log.Errorf("[Comment] create on material %d: %v", materialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not save comment")
	}
	if stored, err := cc.comments.GetByID(comment.ID); err == nil {
		comment = stored
	}
	return c.Status(fiber.StatusCreated).JSON(toCommentView(comment))
}

// HandleList pages through the top level comments of a material, newest first.
func (cc *CommentController) HandleList(c *fiber.Ctx) error {
	materialID, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}
	page, size, offset := pagination(c)
	rows, total, err := cc.comments.ListTopLevel(materialID, offset, size)
	if err != nil {
		log.Errorf("[Comment] list material %d: %v", materialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load comments")
	}
	items, err := cc.decorate(usercontext.GetUserID(c), rows, true)
	if err != nil {
		log.Errorf("[Comment] decorate material %d: %v", materialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load comments")
	}
	return c.JSON(fiber.Map{
		"items":    items,
		"total":    total,
		"page":     page,
		"pageSize": size,
	})
}

// HandleReplies lists the replies of a comment, oldest first.
func (cc *CommentController) HandleReplies(c *fiber.Ctx) error {
	id, ok := paramID(c, "commentId")
	if !ok {
		return invalidID(c, "commentId")
	}
	rows, err := cc.comments.ListReplies(id)
	if err != nil {
		log.Errorf("[Comment] replies of %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load replies")
	}
	items, err := cc.decorate(usercontext.GetUserID(c), rows, false)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load replies")
	}
	return c.JSON(fiber.Map{"items": items})
}

func (cc *CommentController) decorate(userID uint, rows []models.Comment, withReplies bool) ([]commentView, error) {
	ids := make([]uint, 0, len(rows))
	for i := range rows {
		ids = append(ids, rows[i].ID)
	}
	liked, err := cc.comments.LikedBy(userID, ids)
	if err != nil {
		return nil, err
	}
	replies := map[uint]int64{}
	if withReplies {
		if replies, err = cc.comments.CountReplies(ids); err != nil {
			return nil, err
		}
	}
	out := make([]commentView, 0, len(rows))
	for i := range rows {
		rows[i].LikedByMe = liked[rows[i].ID]
		rows[i].ReplyCount = replies[rows[i].ID]
		out = append(out, toCommentView(&rows[i]))
	}
	return out, nil
}

func (cc *CommentController) HandleLike(c *fiber.Ctx) error {
	return cc.toggleLike(c, true)
}

func (cc *CommentController) HandleUnlike(c *fiber.Ctx) error {
	return cc.toggleLike(c, false)
}

// toggleLike moves the counter only when a like row was actually added or removed.
func (cc *CommentController) toggleLike(c *fiber.Ctx, like bool) error {
	id, ok := paramID(c, "commentId")
	if !ok {
		return invalidID(c, "commentId")
	}
	if _, err := cc.comments.GetByID(id); err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "comment not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load comment")
	}

	userID := usercontext.GetUserID(c)
	var (
		changed bool
		err     error
	)
	if like {
		changed, err = cc.comments.Like(id, userID)
	} else {
		changed, err = cc.comments.Unlike(id, userID)
	}
	if err != nil {
		log.Errorf("[Comment] like=%t comment=%d user=%d: %v", like, id, userID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not update like")
	}

	comment, err := cc.comments.GetByID(id)
	if err != nil {
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load comment")
	}
	return c.JSON(fiber.Map{
		"id":        comment.ID,
		"likes":     comment.Likes,
		"likedByMe": like,
		"changed":   changed,
	})
}

// HandleDelete removes a comment and its replies. Only the author or an admin may.
func (cc *CommentController) HandleDelete(c *fiber.Ctx) error {
	id, ok := paramID(c, "commentId")
	if !ok {
		return invalidID(c, "commentId")
	}
	comment, err := cc.comments.GetByID(id)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "comment not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load comment")
	}
	uc := usercontext.GetUserContext(c)
	if comment.UserID != uc.UserID && !uc.IsAdmin {
		return jsonError(c, fiber.StatusForbidden, "forbidden", "only the author or an admin can delete this comment")
	}
	if err := cc.comments.Delete(id); err != nil {
		log.Errorf("[Comment] delete %d: %v", id, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not delete comment")
	}
	return c.JSON(fiber.Map{"ok": true})
}
