package asset

import "github.com/ethereum/go-ethereum/common"

// Well-known token contracts per network. Native coins are absent: they
// resolve to the configured zero address.
var addressBook = map[Network]map[Asset]common.Address{
	Ethereum: {
		BTC:  common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599"),
		USDC: common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		USDT: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
		DAI:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
	},
	Arbitrum: {
		BTC:  common.HexToAddress("0x2f2a2543B76A4166549F7aaB2e75Bef0aefC5B0f"),
		USDC: common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		USDT: common.HexToAddress("0xFd086bC7CD5C481DCC9C85ebE478A1C0b69FCbb9"),
		DAI:  common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
	},
	Optimism: {
		BTC:  common.HexToAddress("0x68f180fcCe6836688e9084f035309E29Bf0A2095"),
		USDC: common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
		USDT: common.HexToAddress("0x94b008aA00579c1307B0EF2c499aD98a8ce58e58"),
		DAI:  common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"),
	},
	Base: {
		USDC: common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		DAI:  common.HexToAddress("0x50c5725949A6F0c72E6C4a641F24049A917DB0Cb"),
	},
	Polygon: {
		ETH:  common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619"),
		BTC:  common.HexToAddress("0x1BFD67037B42Cf73acF2047067bd4F2C47D9BfD6"),
		USDC: common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
		USDT: common.HexToAddress("0xc2132D05D31c914a87C6611C10748AEb04B58e8F"),
		DAI:  common.HexToAddress("0x8f3Cf7ad23Cd3CaDbD9735AFf958023239c6A063"),
	},
	BSC: {
		ETH:  common.HexToAddress("0x2170Ed0880ac9A755fd29B2688956BD959F933F8"),
		USDC: common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
		USDT: common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"),
	},
	Avalanche: {
		ETH:  common.HexToAddress("0x49D5c2BdFfac6CE2BFdB6640F4F80f226bc10bAB"),
		USDC: common.HexToAddress("0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E"),
		USDT: common.HexToAddress("0x9702230A8Ea53601f5cD2dc00fDBc13d4dF4A8c7"),
	},
}
