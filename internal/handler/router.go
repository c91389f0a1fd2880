package handler

import (
	"github.com/gin-gonic/gin"

	internalmiddleware "github.com/noah-isme/tutor-payroll-api/internal/middleware"
)

// Routes groups the handlers mounted under the API prefix.
type Routes struct {
	Payroll       *PayrollHandler
	Incentives    *IncentiveHandler
	Confirmations *ConfirmationHandler
}

// Register mounts payroll, incentive and confirmation routes on group.
// Authentication middleware must already be attached to group; mutating routes add the admin check.
func Register(group *gin.RouterGroup, routes Routes) {
	admin := internalmiddleware.RequireAdmin()

	if h := routes.Payroll; h != nil {
		payroll := group.Group("/payroll")
		payroll.GET("/periods", h.ListPeriods)
		payroll.GET("/periods/resolve", h.ResolvePeriod)
		payroll.GET("/summary", admin, h.Summary)
		payroll.GET("/teachers", admin, h.TeacherPayments)
		payroll.PATCH("/classes/:id/payability", admin, h.SetPayability)
		payroll.POST("/exports", admin, h.CreateExport)
	}

	if h := routes.Incentives; h != nil {
		incentives := group.Group("/incentives", admin)
		incentives.GET("", h.List)
		incentives.POST("", h.Create)
		incentives.POST("/retention", h.RunRetention)
		incentives.POST("/perfect-attendance", h.RunPerfectAttendance)
		incentives.POST("/mark-paid", h.MarkPaid)
	}

	if h := routes.Confirmations; h != nil {
		confirmations := group.Group("/confirmations", admin)
		confirmations.GET("/check", h.Check)
		confirmations.POST("", h.Create)
		confirmations.GET("/:id", h.Get)
		confirmations.PATCH("/:id/status", h.UpdateStatus)
	}
}

// RegisterPublic mounts routes authorised by other means, such as signed download tokens.
func RegisterPublic(group *gin.RouterGroup, routes Routes) {
	if h := routes.Payroll; h != nil {
		group.GET("/payroll/exports/download", h.DownloadExport)
	}
}
