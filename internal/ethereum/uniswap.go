package ethereum

import (
	"context"
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Mainnet defaults.
const (
	UniswapV2Router = "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D"
	WETH            = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	USDC            = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	USDCDecimals    = 6
)

// SpotPricer quotes 1 WETH in a stablecoin through the Uniswap V2 router's
// getAmountsOut, i.e. the price a swap of one ether would get right now.
type SpotPricer struct {
	client     *Client
	routerAddr common.Address
	wethAddr   common.Address
	quoteAddr  common.Address
	quoteDec   int
	routerABI  abi.ABI
}

func NewSpotPricer(client *Client, routerAddr, wethAddr, quoteAddr string, quoteDecimals int) (*SpotPricer, error) {
	rABI, err := abi.JSON(routerABIJSON())
	if err != nil {
		return nil, fmt.Errorf("parse router ABI: %w", err)
	}
	return &SpotPricer{
		client:     client,
		routerAddr: common.HexToAddress(routerAddr),
		wethAddr:   common.HexToAddress(wethAddr),
		quoteAddr:  common.HexToAddress(quoteAddr),
		quoteDec:   quoteDecimals,
		routerABI:  rABI,
	}, nil
}

// NewMainnetPricer prices WETH in USDC on the canonical router.
func NewMainnetPricer(client *Client) (*SpotPricer, error) {
	return NewSpotPricer(client, UniswapV2Router, WETH, USDC, USDCDecimals)
}

func (s *SpotPricer) ETHPrice(ctx context.Context) (float64, error) {
	path := []common.Address{s.wethAddr, s.quoteAddr}
	data, err := s.routerABI.Pack("getAmountsOut", toEthWei(1), path)
	if err != nil {
		return 0, fmt.Errorf("pack getAmountsOut: %w", err)
	}

	result, err := s.client.CallContract(ctx, s.routerAddr, data)
	if err != nil {
		return 0, fmt.Errorf("getAmountsOut call: %w", err)
	}

	out, err := s.routerABI.Unpack("getAmountsOut", result)
	if err != nil {
		return 0, fmt.Errorf("unpack getAmountsOut: %w", err)
	}
	if len(out) == 0 {
		return 0, fmt.Errorf("getAmountsOut: empty result")
	}
	amounts, ok := out[0].([]*big.Int)
	if !ok || len(amounts) < 2 {
		return 0, fmt.Errorf("getAmountsOut: unexpected result %v", out)
	}

	price := fromTokenWei(amounts[len(amounts)-1], s.quoteDec)
	if price <= 0 {
		return 0, fmt.Errorf("invalid price: %f", price)
	}
	return price, nil
}

func toEthWei(eth float64) *big.Int {
	f := new(big.Float).Mul(new(big.Float).SetFloat64(eth), new(big.Float).SetFloat64(1e18))
	i, _ := f.Int(nil)
	return i
}

func fromTokenWei(amount *big.Int, decimals int) float64 {
	f, _ := new(big.Float).Quo(
		new(big.Float).SetInt(amount),
		new(big.Float).SetFloat64(math.Pow10(decimals)),
	).Float64()
	return f
}
