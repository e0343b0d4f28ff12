package chain

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"os"

	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	txtypes "github.com/cosmos/cosmos-sdk/types/tx"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/rotisserie/eris"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// NodeClient is the subset of the node's gRPC surface the feeder uses.
type NodeClient interface {
	// Simulate returns the gas used by the encoded transaction.
	Simulate(ctx context.Context, txBytes []byte) (uint64, error)
	// BroadcastTx submits the encoded transaction in sync mode and returns the CheckTx response.
	BroadcastTx(ctx context.Context, txBytes []byte) (*sdk.TxResponse, error)
	// Account returns the account number and committed sequence of addr.
	Account(ctx context.Context, addr string) (accountNumber uint64, sequence uint64, err error)
}

var _ NodeClient = &GRPCClient{}

// GRPCClient talks to a Cosmos SDK node over gRPC.
type GRPCClient struct {
	conn     *grpc.ClientConn
	tx       txtypes.ServiceClient
	auth     authtypes.QueryClient
	registry codectypes.InterfaceRegistry

	// opts
	creds credentials.TransportCredentials
}

type Option func(c *GRPCClient) error

// WithCredentials makes the client verify the node with the CA certificate at credPath.
func WithCredentials(credPath string) Option {
	return func(c *GRPCClient) error {
		if credPath == "" {
			return eris.New("must provide client credential path")
		}
		creds, err := loadClientCredentials(credPath)
		if err != nil {
			return err
		}
		c.creds = creds
		return nil
	}
}

func loadClientCredentials(path string) (credentials.TransportCredentials, error) {
	// Load certificate of the CA who signed server's certificate
	pemServerCA, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "failed to read CA certificate")
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(pemServerCA) {
		return nil, eris.New("failed to add server CA's certificate")
	}

	return credentials.NewTLS(&tls.Config{RootCAs: certPool, MinVersion: tls.VersionTLS12}), nil
}

// NewClient connects to the node's gRPC endpoint. The connection is established lazily.
func NewClient(addr string, registry codectypes.InterfaceRegistry, opts ...Option) (*GRPCClient, error) {
	c := &GRPCClient{registry: registry, creds: insecure.NewCredentials()}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	conn, err := grpc.Dial(addr, grpc.WithTransportCredentials(c.creds))
	if err != nil {
		return nil, eris.Wrapf(err, "failed to dial node at %s", addr)
	}
	c.conn = conn
	c.tx = txtypes.NewServiceClient(conn)
	c.auth = authtypes.NewQueryClient(conn)
	return c, nil
}

func (c *GRPCClient) Simulate(ctx context.Context, txBytes []byte) (uint64, error) {
	res, err := c.tx.Simulate(ctx, &txtypes.SimulateRequest{TxBytes: txBytes})
	if err != nil {
		return 0, eris.Wrap(err, "simulate request failed")
	}
	if res.GasInfo == nil {
		return 0, eris.New("simulate response has no gas info")
	}
	return res.GasInfo.GasUsed, nil
}

func (c *GRPCClient) BroadcastTx(ctx context.Context, txBytes []byte) (*sdk.TxResponse, error) {
	res, err := c.tx.BroadcastTx(ctx, &txtypes.BroadcastTxRequest{
		TxBytes: txBytes,
		Mode:    txtypes.BroadcastMode_BROADCAST_MODE_SYNC,
	})
	if err != nil {
		return nil, eris.Wrap(err, "broadcast request failed")
	}
	if res.TxResponse == nil {
		return nil, eris.New("broadcast response is empty")
	}
	return res.TxResponse, nil
}

func (c *GRPCClient) Account(ctx context.Context, addr string) (uint64, uint64, error) {
	res, err := c.auth.Account(ctx, &authtypes.QueryAccountRequest{Address: addr})
	if err != nil {
		return 0, 0, eris.Wrapf(err, "account query for %s failed", addr)
	}
	var acc authtypes.AccountI
	if err := c.registry.UnpackAny(res.Account, &acc); err != nil {
		return 0, 0, eris.Wrap(err, "failed to decode account")
	}
	return acc.GetAccountNumber(), acc.GetSequence(), nil
}

// Close tears down the gRPC connection.
func (c *GRPCClient) Close() error {
	return c.conn.Close()
}
