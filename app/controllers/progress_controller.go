package controllers

import (
	"context"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CourseFox/app/models"
	"github.com/ManuelReschke/CourseFox/app/repository"
	"github.com/ManuelReschke/CourseFox/internal/pkg/usercontext"
)

// CourseAccess answers whether a user may read a course's content.
type CourseAccess interface {
	HasAccess(ctx context.Context, userID, courseID uint) (bool, error)
}

type ProgressController struct {
	progress  repository.ProgressRepository
	units     repository.UnitRepository
	materials repository.MaterialRepository
	access    CourseAccess
	now       func() time.Time
}

func NewProgressController(repos *repository.Repositories, access CourseAccess) *ProgressController {
	return &ProgressController{
		progress:  repos.Progress,
		units:     repos.Unit,
		materials: repos.Material,
		access:    access,
		now:       time.Now,
	}
}

type progressRequest struct {
	CourseID           uint  `json:"courseId" validate:"required"`
	UnitID             uint  `json:"unitId" validate:"required"`
	MaterialID         uint  `json:"materialId" validate:"required"`
	Completed          *bool `json:"completed"`
	ProgressPercentage *int  `json:"progressPercentage" validate:"omitempty,gte=0,lte=100"`
	LastPosition       *int  `json:"lastPosition" validate:"omitempty,gte=0"`
}

// HandleUpsert stores progress for one material. Fields missing from the body
// keep their stored value.
func (pc *ProgressController) HandleUpsert(c *fiber.Ctx) error {
	var req progressRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	uc := usercontext.GetUserContext(c)

	if !uc.IsAdmin {
		ok, err := pc.access.HasAccess(c.UserContext(), uc.UserID, req.CourseID)
		if err != nil {
			log.Errorf("[Progress] access check user=%d course=%d: %v", uc.UserID, req.CourseID, err)
			return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not check enrollment")
		}
		if !ok {
			return jsonError(c, fiber.StatusForbidden, "not_enrolled", "an active enrollment is required")
		}
	}

	material, err := pc.materials.GetByID(req.MaterialID)
	if err != nil {
		if isNotFound(err) {
			return jsonError(c, fiber.StatusNotFound, "not_found", "material not found")
		}
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load material")
	}
	unit, err := pc.units.GetByID(material.UnitID)
	if err != nil || material.UnitID != req.UnitID || unit.CourseID != req.CourseID {
		return jsonError(c, fiber.StatusBadRequest, "material_mismatch", "material does not belong to the given unit and course")
	}

	row := &models.Progress{UserID: uc.UserID, MaterialID: req.MaterialID}
	if existing, err := pc.progress.GetByMaterial(uc.UserID, req.MaterialID); err == nil {
		row = existing
	} else if !isNotFound(err) {
		log.Errorf("[Progress] load user=%d material=%d: %v", uc.UserID, req.MaterialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load progress")
	}
	row.CourseID = req.CourseID
	row.UnitID = req.UnitID
	if req.Completed != nil {
		row.Completed = *req.Completed
		if !row.Completed && row.ProgressPercentage == 100 && req.ProgressPercentage == nil {
			row.ProgressPercentage = 0
		}
	}
	if req.ProgressPercentage != nil {
		row.ProgressPercentage = *req.ProgressPercentage
	}
	if req.LastPosition != nil {
		row.LastPosition = *req.LastPosition
	}
	row.Normalize(pc.now())

	if err := pc.progress.Upsert(row); err != nil {
		log.Errorf("[Progress] upsert user=%d material=%d: %v", uc.UserID, req.MaterialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not save progress")
	}
	return c.JSON(row)
}

type courseProgressView struct {
	CourseID           uint              `json:"courseId"`
	Items              []models.Progress `json:"items"`
	CompletedMaterials int               `json:"completedMaterials"`
	TotalMaterials     int               `json:"totalMaterials"`
	ProgressPercentage int               `json:"progressPercentage"`
}

// HandleCourse returns the caller's rows for a course and the share of
// materials completed.
func (pc *ProgressController) HandleCourse(c *fiber.Ctx) error {
	courseID, ok := paramID(c, "courseId")
	if !ok {
		return invalidID(c, "courseId")
	}
	userID := usercontext.GetUserID(c)

	rows, err := pc.progress.ListByCourse(userID, courseID)
	if err != nil {
		log.Errorf("[Progress] list user=%d course=%d: %v", userID, courseID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load progress")
	}
	materials, err := pc.materials.ListByCourse(courseID)
	if err != nil {
		log.Errorf("[Progress] count materials of course %d: %v", courseID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load progress")
	}

	view := courseProgressView{
		CourseID:       courseID,
		Items:          rows,
		TotalMaterials: len(materials),
	}
	if view.Items == nil {
		view.Items = []models.Progress{}
	}
	for i := range rows {
		if rows[i].Completed {
			view.CompletedMaterials++
		}
	}
	view.ProgressPercentage = overallPercentage(view.CompletedMaterials, view.TotalMaterials)
	return c.JSON(view)
}

func overallPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	if completed > total {
		completed = total
	}
	return int(math.Round(float64(completed) / float64(total) * 100))
}

// HandleMaterial returns the caller's row for one material, or null.
func (pc *ProgressController) HandleMaterial(c *fiber.Ctx) error {
	materialID, ok := paramID(c, "materialId")
	if !ok {
		return invalidID(c, "materialId")
	}
	userID := usercontext.GetUserID(c)
	row, err := pc.progress.GetByMaterial(userID, materialID)
	if err != nil {
		if isNotFound(err) {
			return c.JSON(nil)
		}
		log.Errorf("[Progress] load user=%d material=%d: %v", userID, materialID, err)
		return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "could not load progress")
	}
	return c.JSON(row)
}
