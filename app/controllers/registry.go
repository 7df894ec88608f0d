package controllers

import (
	"github.com/ManuelReschke/CourseFox/app/repository"
)

// Dependencies are the services the controllers are built from.
type Dependencies struct {
	Repos       *repository.Repositories
	Tokens      TokenIssuer
	Cache       CourseCache
	Signer      MaterialSigner
	Objects     ObjectStore
	Enrollments interface {
		EnrollmentGranter
		EnrollmentLister
		CourseAccess
	}
	Payments  PaymentService
	Counter   WebhookCounter
	Dashboard DashboardSource
}

// Controllers bundles one instance of every controller.
type Controllers struct {
	Auth       *AuthController
	Course     *CourseController
	Admin      *AdminController
	Category   *CategoryController
	Enrollment *EnrollmentController
	Progress   *ProgressController
	Comment    *CommentController
	Payment    *PaymentController
	Stats      *StatsController
}

var controllers *Controllers

func New(deps Dependencies) *Controllers {
	return &Controllers{
		Auth:       NewAuthController(deps.Repos.User, deps.Tokens),
		Course:     NewCourseController(deps.Repos, deps.Cache, deps.Signer),
		Admin:      NewAdminController(deps.Repos, deps.Cache, deps.Objects, deps.Enrollments),
		Category:   NewCategoryController(deps.Repos),
		Enrollment: NewEnrollmentController(deps.Enrollments),
		Progress:   NewProgressController(deps.Repos, deps.Enrollments),
		Comment:    NewCommentController(deps.Repos),
		Payment:    NewPaymentController(deps.Payments, deps.Repos.Course, deps.Counter),
		Stats:      NewStatsController(deps.Dashboard),
	}
}

// Initialize builds the global controller set used by the router.
func Initialize(deps Dependencies) {
	controllers = New(deps)
}

// Get returns the global controller set. Initialize must run first.
func Get() *Controllers {
	if controllers == nil {
		panic("controllers not initialized")
	}
	return controllers
}
