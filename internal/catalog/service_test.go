package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/subledger/internal/catalog"
	"github.com/MrJamesThe3rd/subledger/internal/errs"
)

func TestService_CreateDepartment(t *testing.T) {
	type testCase struct {
		name      string
		input     string
		setupMock func(m *catalog.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:  "Success",
			input: "  Engineering ",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().CreateDepartment(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name:    "EmptyName",
			input:   "   ",
			wantErr: errs.ErrValidation,
		},
		{
			name:  "RepoError",
			input: "Sales",
			setupMock: func(m *catalog.MockRepository) {
				m.EXPECT().CreateDepartment(gomock.Any(), gomock.Any()).Return(errors.New("db error"))
			},
			wantErr: errs.ErrPersistence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := catalog.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := catalog.NewService(repo).CreateDepartment(context.Background(), "user-1", tt.input, "#ff0000")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, "Engineering", got.Name)
			assert.Equal(t, "user-1", got.UserID)
			assert.NotEmpty(t, got.ID)
		})
	}
}

func TestService_ListAccounts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := catalog.NewMockRepository(ctrl)
	repo.EXPECT().ListAccounts(gomock.Any(), "user-1").Return([]*catalog.Account{{Name: "Software", Code: "6200"}}, nil)

	got, err := catalog.NewService(repo).ListAccounts(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
