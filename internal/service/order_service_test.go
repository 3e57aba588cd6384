package service_test

import (
	"context"
	"errors"
	"testing"

	"shopdemo/order-service/internal/model"
	"shopdemo/order-service/internal/repository"
	"shopdemo/order-service/internal/service"
	"shopdemo/order-service/internal/service/mocks"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func runAtomicPassthrough(mr *mocks.MockRepository) {
	mr.EXPECT().
		RunAtomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		})
}

func TestOrderService_Purchase(t *testing.T) {
	errBackend := errors.New("connection reset")

	type args struct {
		userID    int
		productID int
		qty       int
	}
	tests := []struct {
		name              string
		prepareRepository func(*mocks.MockRepository)
		args              args
		wantErr           error
	}{
		{
			name: "successful purchase debits balance, stock and inserts order",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 100}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 5}, nil)
				mr.EXPECT().
					UpdateUserBalance(gomock.Any(), 1, 60.0).
					Return(nil)
				mr.EXPECT().
					UpdateProductQuantity(gomock.Any(), 10, 3).
					Return(nil)
				mr.EXPECT().
					InsertOrder(gomock.Any(), model.Order{ID: 1, UserID: 1, ProductID: 10, OrderTotal: 40}).
					Return(nil)
			},
			args: args{userID: 1, productID: 10, qty: 2},
		},
		{
			name: "exact balance drains the account to zero",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 40}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 5}, nil)
				mr.EXPECT().
					UpdateUserBalance(gomock.Any(), 1, 0.0).
					Return(nil)
				mr.EXPECT().
					UpdateProductQuantity(gomock.Any(), 10, 3).
					Return(nil)
				mr.EXPECT().
					InsertOrder(gomock.Any(), model.Order{ID: 1, UserID: 1, ProductID: 10, OrderTotal: 40}).
					Return(nil)
			},
			args: args{userID: 1, productID: 10, qty: 2},
		},
		{
			name: "exact stock drains inventory to zero",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 100}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 2}, nil)
				mr.EXPECT().
					UpdateUserBalance(gomock.Any(), 1, 60.0).
					Return(nil)
				mr.EXPECT().
					UpdateProductQuantity(gomock.Any(), 10, 0).
					Return(nil)
				mr.EXPECT().
					InsertOrder(gomock.Any(), model.Order{ID: 1, UserID: 1, ProductID: 10, OrderTotal: 40}).
					Return(nil)
			},
			args: args{userID: 1, productID: 10, qty: 2},
		},
		{
			name: "insufficient balance",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 10}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 5}, nil)
			},
			args:    args{userID: 1, productID: 10, qty: 1},
			wantErr: service.ErrInsufficientBalance,
		},
		{
			name: "insufficient stock",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 100}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 1}, nil)
			},
			args:    args{userID: 1, productID: 10, qty: 2},
			wantErr: service.ErrInsufficientStock,
		},
		{
			name:              "zero quantity rejected before opening a transaction",
			prepareRepository: func(mr *mocks.MockRepository) {},
			args:              args{userID: 1, productID: 10, qty: 0},
			wantErr:           service.ErrInvalidQuantity,
		},
		{
			name:              "negative quantity rejected",
			prepareRepository: func(mr *mocks.MockRepository) {},
			args:              args{userID: 1, productID: 10, qty: -3},
			wantErr:           service.ErrInvalidQuantity,
		},
		{
			name: "unknown user propagates as backend error",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 404).
					Return(model.User{}, repository.ErrUserNotFound)
			},
			args:    args{userID: 404, productID: 10, qty: 1},
			wantErr: repository.ErrUserNotFound,
		},
		{
			name: "write failure aborts before the order insert",
			prepareRepository: func(mr *mocks.MockRepository) {
				runAtomicPassthrough(mr)
				mr.EXPECT().
					GetUserForUpdate(gomock.Any(), 1).
					Return(model.User{ID: 1, Balance: 100}, nil)
				mr.EXPECT().
					GetProductForUpdate(gomock.Any(), 10).
					Return(model.Product{ID: 10, Price: 20, Quantity: 5}, nil)
				mr.EXPECT().
					UpdateUserBalance(gomock.Any(), 1, 80.0).
					Return(nil)
				mr.EXPECT().
					UpdateProductQuantity(gomock.Any(), 10, 4).
					Return(errBackend)
			},
			args:    args{userID: 1, productID: 10, qty: 1},
			wantErr: errBackend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockRepo := mocks.NewMockRepository(ctrl)
			tt.prepareRepository(mockRepo)

			svc := service.NewOrderService(mockRepo, service.NewOrderSequence(0))
			err := svc.Purchase(context.Background(), tt.args.userID, tt.args.productID, tt.args.qty)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestOrderService_Purchase_OrderIDsIncrease(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)

	var insertedIDs []int
	mockRepo.EXPECT().
		RunAtomic(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		}).
		Times(3)
	mockRepo.EXPECT().
		GetUserForUpdate(gomock.Any(), 1).
		Return(model.User{ID: 1, Balance: 1000}, nil).
		Times(3)
	mockRepo.EXPECT().
		GetProductForUpdate(gomock.Any(), 10).
		Return(model.Product{ID: 10, Price: 5, Quantity: 100}, nil).
		Times(3)
	mockRepo.EXPECT().
		UpdateUserBalance(gomock.Any(), 1, gomock.Any()).
		Return(nil).
		Times(3)
	mockRepo.EXPECT().
		UpdateProductQuantity(gomock.Any(), 10, gomock.Any()).
		Return(nil).
		Times(3)
	mockRepo.EXPECT().
		InsertOrder(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, order model.Order) error {
			insertedIDs = append(insertedIDs, order.ID)
			return nil
		}).
		Times(3)

	svc := service.NewOrderService(mockRepo, service.NewOrderSequence(41))
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Purchase(context.Background(), 1, 10, 1))
	}

	require.Equal(t, []int{42, 43, 44}, insertedIDs)
}

func TestOrderService_GetOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	want := model.Order{ID: 7, UserID: 1, ProductID: 10, OrderTotal: 40}
	mockRepo.EXPECT().
		GetOrder(gomock.Any(), 7).
		Return(want, nil)

	svc := service.NewOrderService(mockRepo, service.NewOrderSequence(0))
	got, err := svc.GetOrder(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestOrderService_GetOrder_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockRepository(ctrl)
	mockRepo.EXPECT().
		GetOrder(gomock.Any(), 99).
		Return(model.Order{}, repository.ErrOrderNotFound)

	svc := service.NewOrderService(mockRepo, service.NewOrderSequence(0))
	_, err := svc.GetOrder(context.Background(), 99)
	require.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestIsPrecondition(t *testing.T) {
	require.True(t, service.IsPrecondition(service.ErrInvalidQuantity))
	require.True(t, service.IsPrecondition(service.ErrInsufficientBalance))
	require.True(t, service.IsPrecondition(service.ErrInsufficientStock))
	require.False(t, service.IsPrecondition(repository.ErrUserNotFound))
	require.False(t, service.IsPrecondition(errors.New("timeout")))
}
