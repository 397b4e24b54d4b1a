package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/classboard/classboard-api/internal/models"
	appErrors "github.com/classboard/classboard-api/pkg/errors"
	"github.com/classboard/classboard-api/pkg/export"
)

type reportActivityReader interface {
	ListByClass(ctx context.Context, classID string) ([]models.Activity, error)
}

type reportSubmissionReader interface {
	ListByActivity(ctx context.Context, activityID string) ([]models.SubmissionDetail, error)
}

// ReportFormat selects the rendering of a class report.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ClassReport is the rendered engagement report for one class.
type ClassReport struct {
	FileName    string
	ContentType string
	Content     []byte
}

// ReportService renders per-class engagement reports combining roster size,
// session metrics and activity progress.
type ReportService struct {
	classes     analyticsClassReader
	memberships analyticsMembershipRepository
	activities  reportActivityReader
	submissions reportSubmissionReader
	analytics   *AnalyticsService
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	logger      *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(classes analyticsClassReader, memberships analyticsMembershipRepository, activities reportActivityReader, submissions reportSubmissionReader, analytics *AnalyticsService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		classes:     classes,
		memberships: memberships,
		activities:  activities,
		submissions: submissions,
		analytics:   analytics,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
	}
}

// Generate builds the engagement report for a class in the requested format.
func (s *ReportService) Generate(ctx context.Context, classID string, format ReportFormat) (*ClassReport, error) {
	if format != ReportFormatCSV && format != ReportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}

	members, err := s.memberships.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class members")
	}
	students := 0
	for _, m := range members {
		if m.Role == models.RoleStudent {
			students++
		}
	}

	average, err := s.analytics.AverageSessionTime(ctx, classID)
	if err != nil {
		return nil, err
	}

	activities, err := s.activities.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load activities")
	}

	rows := make([][]string, 0, len(activities)+1)
	rows = append(rows, []string{
		"Class overview",
		fmt.Sprintf("%d students", students),
		fmt.Sprintf("avg session %s over %d sessions", average.Formatted, average.SessionsCount),
	})
	for _, activity := range activities {
		submissions, err := s.submissions.ListByActivity(ctx, activity.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
		}
		graded := 0
		for _, submission := range submissions {
			if submission.Status == models.SubmissionStatusGraded {
				graded++
			}
		}
		rows = append(rows, []string{
			activity.Title,
			string(activity.Status),
			strconv.Itoa(len(submissions)) + " submitted, " + strconv.Itoa(graded) + " graded",
		})
	}

	table := export.Table{Headers: []string{"Item", "Status", "Detail"}, Rows: rows}

	switch format {
	case ReportFormatPDF:
		content, err := s.pdf.Render(table, fmt.Sprintf("Engagement report: %s", class.Name))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return &ClassReport{FileName: fmt.Sprintf("class-report-%s.pdf", class.ID), ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return &ClassReport{FileName: fmt.Sprintf("class-report-%s.csv", class.ID), ContentType: "text/csv", Content: content}, nil
	}
}
