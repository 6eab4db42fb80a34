package registry

// 桥合约方法
const BridgeMethod = "bridge"

// BridgeABI 桥合约 ABI, bridge(uint256 amount, bytes accAddress, bytes memo)
const BridgeABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "bytes", "name": "accAddress", "type": "bytes"},
			{"internalType": "bytes", "name": "memo", "type": "bytes"}
		],
		"name": "bridge",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// Sepolia
const SepoliaChainID uint64 = 11155111

// 已部署的桥合约地址, 按 chainId
var DefaultContracts = map[uint64]string{
	SepoliaChainID: "0xa4A7Acf2f06b1CC296E15E8979B546D34446D5c4",
}
