package rpc

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	gethRpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog/log"
	config "github.com/surgencelabs/dune-sync/configs"
	"github.com/surgencelabs/dune-sync/internal/common"
)

type IRPCClient interface {
	GetLatestBlockNumber(ctx context.Context) (int64, error)
	GetLogs(ctx context.Context, blockRange common.BlockRange) ([]common.Log, error)
	GetURL() string
	Close()
}

type Client struct {
	RPCClient *gethRpc.Client
	url       string
}

func Initialize() (IRPCClient, error) {
	rpcUrl := config.Cfg.RPC.URL
	if rpcUrl == "" {
		return nil, fmt.Errorf("RPC_URL environment variable is not set")
	}
	log.Debug().Msg("Initializing RPC")
	rpcClient, dialErr := gethRpc.Dial(rpcUrl)
	if dialErr != nil {
		return nil, dialErr
	}
	return &Client{RPCClient: rpcClient, url: rpcUrl}, nil
}

func (rpc *Client) GetURL() string {
	return rpc.url
}

func (rpc *Client) Close() {
	rpc.RPCClient.Close()
}

func (rpc *Client) GetLatestBlockNumber(ctx context.Context) (int64, error) {
	var result hexutil.Uint64
	if err := rpc.RPCClient.CallContext(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, newError("eth_blockNumber", err)
	}
	return int64(result), nil
}

// GetLogs issues a single range-bounded eth_getLogs query. All logs in the
// range are requested; address/topic filtering happens downstream in Dune.
func (rpc *Client) GetLogs(ctx context.Context, blockRange common.BlockRange) ([]common.Log, error) {
	filter := map[string]string{
		"fromBlock": hexutil.EncodeUint64(uint64(blockRange.Start)),
		"toBlock":   hexutil.EncodeUint64(uint64(blockRange.End)),
	}

	var rawLogs []map[string]interface{}
	if err := rpc.RPCClient.CallContext(ctx, &rawLogs, "eth_getLogs", filter); err != nil {
		return nil, newError("eth_getLogs", err)
	}

	logs, err := serializeLogs(rawLogs)
	if err != nil {
		// A response we cannot parse will not get better on retry.
		return nil, newFatalError("eth_getLogs", err)
	}
	return logs, nil
}
