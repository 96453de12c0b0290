package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"app/internal/model"
	"app/internal/repository"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ReportService persists saved analysis reports and exports them as CSV files
// behind short-lived download URLs.
type ReportService interface {
	Save(ctx context.Context, rep *model.Report) (*model.Report, error)
	List(ctx context.Context, userID string) ([]model.Report, error)
	Get(ctx context.Context, userID, id string) (*model.Report, error)
	Delete(ctx context.Context, userID, id string) error
	// ExportCSV renders the report as CSV, uploads it to object storage and
	// returns a presigned download URL.
	ExportCSV(ctx context.Context, userID, id string) (string, error)
}

type reportService struct {
	repo          repository.ReportRepository
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

// NewReportService creates a new ReportService with a scoped logger.
func NewReportService(repo repository.ReportRepository, s3Client *s3.Client, bucketName string, logger zerolog.Logger) ReportService {
	return &reportService{
		repo:          repo,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ReportService").Logger(),
	}
}

func (s *reportService) Save(ctx context.Context, rep *model.Report) (*model.Report, error) {
	if err := s.repo.CreateReport(ctx, rep); err != nil {
		s.logger.Error().Err(err).Str("user_id", rep.UserID).Msg("Failed to save report")
		return nil, err
	}
	return rep, nil
}

func (s *reportService) List(ctx context.Context, userID string) ([]model.Report, error) {
	reports, err := s.repo.GetReportsByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Failed to list reports")
		return nil, err
	}
	return reports, nil
}

// Get resolves a report scoped to its owner. Another user's report id behaves
// like a missing one.
func (s *reportService) Get(ctx context.Context, userID, id string) (*model.Report, error) {
	rep, err := s.repo.GetReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rep.UserID != userID {
		return nil, repository.ErrReportNotFound
	}
	return rep, nil
}

func (s *reportService) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.DeleteReport(ctx, id, userID); err != nil {
		s.logger.Error().Err(err).Str("report_id", id).Msg("Failed to delete report")
		return err
	}
	return nil
}

func (s *reportService) ExportCSV(ctx context.Context, userID, id string) (string, error) {
	rep, err := s.Get(ctx, userID, id)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	records := [][]string{
		{"report_id", "type", "query", "created_at", "payload"},
		{rep.ID, rep.Type, rep.Query, rep.CreatedAt.UTC().Format(time.RFC3339), string(rep.Payload)},
	}
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("rendering csv for report %s: %w", id, err)
	}

	objectKey := fmt.Sprintf("exports/%s/%s.csv", userID, rep.ID)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(objectKey),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("report_id", id).Msg("Failed to upload report export")
		return "", fmt.Errorf("uploading export for report %s: %w", id, err)
	}

	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presigning export for report %s: %w", id, err)
	}
	return resp.URL, nil
}
