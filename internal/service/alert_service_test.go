package service

import (
	"context"
	"errors"
	"testing"

	"github.com/spyware-scanner/spyware-scanner-go/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// TestAlertService_CreateAlert 测试创建告警
func TestAlertService_CreateAlert(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	service := NewAlertService(alertRepo, testLogger())
	ctx := context.Background()

	alertRepo.On("Create", ctx, mock.AnythingOfType("*domain.Alert")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Alert).ID = 11
		}).
		Return(nil)

	alert, err := service.CreateAlert(ctx, domain.AlertTypeNewThreat, "Critical Threat Detected", "Spy: known spyware", "com.example.spyware", 4)

	require.NoError(t, err)
	assert.Equal(t, uint(11), alert.ID)
	assert.Equal(t, domain.AlertTypeNewThreat, alert.Type)
	assert.Equal(t, "com.example.spyware", alert.PackageName)
	assert.Equal(t, 4, alert.Priority)
	assert.False(t, alert.IsRead)
	assert.False(t, alert.Timestamp.IsZero())
}

// TestAlertService_CreateAlert_Error 测试创建告警失败
func TestAlertService_CreateAlert_Error(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	service := NewAlertService(alertRepo, testLogger())
	ctx := context.Background()

	alertRepo.On("Create", ctx, mock.Anything).Return(errors.New("database error"))

	alert, err := service.CreateAlert(ctx, domain.AlertTypeScanComplete, "t", "m", "", 1)

	assert.Error(t, err)
	assert.Nil(t, alert)
}

// TestAlertService_Bulk 测试批量操作
func TestAlertService_Bulk(t *testing.T) {
	alertRepo := new(MockAlertRepository)
	service := NewAlertService(alertRepo, testLogger())
	ctx := context.Background()

	alertRepo.On("MarkAllRead", ctx).Return(int64(3), nil)
	alertRepo.On("DeleteAll", ctx).Return(int64(5), nil)
	alertRepo.On("CountUnread", ctx).Return(int64(0), nil)

	n, err := service.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = service.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	unread, err := service.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)
	alertRepo.AssertExpectations(t)
}
