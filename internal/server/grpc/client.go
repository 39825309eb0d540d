package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophcredits/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// DebitResult is the decoded Debit response.
type DebitResult struct {
	TransactionID string
	BalanceBefore int64
	BalanceAfter  int64
}

// Client calls the credit service with a fixed service token.
type Client struct {
	cc          grpc.ClientConnInterface
	accessToken string
}

func NewClient(cc grpc.ClientConnInterface, accessToken string) *Client {
	return &Client{cc: cc, accessToken: accessToken}
}

func (c *Client) withToken(ctx context.Context) context.Context {
	return metadata.AppendToOutgoingContext(ctx, common.AccessTokenHeaderName, c.accessToken)
}

func (c *Client) Debit(ctx context.Context, userID string, amount int64, featureRef string) (*DebitResult, error) {
	in, err := structpb.NewStruct(map[string]any{
		"user_id":     userID,
		"amount":      amount,
		"feature_ref": featureRef,
	})
	if err != nil {
		return nil, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(c.withToken(ctx), DebitMethod, in, out); err != nil {
		return nil, err
	}

	f := out.GetFields()
	return &DebitResult{
		TransactionID: f["transaction_id"].GetStringValue(),
		BalanceBefore: int64(f["balance_before"].GetNumberValue()),
		BalanceAfter:  int64(f["balance_after"].GetNumberValue()),
	}, nil
}

func (c *Client) GetBalance(ctx context.Context, userID string) (int64, error) {
	in, err := structpb.NewStruct(map[string]any{"user_id": userID})
	if err != nil {
		return 0, err
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(c.withToken(ctx), GetBalanceMethod, in, out); err != nil {
		return 0, err
	}

	return int64(out.GetFields()["credits"].GetNumberValue()), nil
}
