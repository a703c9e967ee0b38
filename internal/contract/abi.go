package contract

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// FactoryMetaData describes the bonding-curve factory interface this
// service reads from and writes to.
var FactoryMetaData = &bind.MetaData{
	ABI: `[
  {"type":"function","name":"tokens","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[
     {"name":"tokenAddress","type":"address"},
     {"name":"creator","type":"address"},
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"totalSupply","type":"uint256"},
     {"name":"reserveBalance","type":"uint256"},
     {"name":"k","type":"uint256"},
     {"name":"createdAt","type":"uint256"},
     {"name":"totalBuyVolume","type":"uint256"},
     {"name":"totalSellVolume","type":"uint256"},
     {"name":"holderCount","type":"uint256"}]},
  {"type":"function","name":"getTokenData","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"description","type":"string"},
     {"name":"imageURI","type":"string"},
     {"name":"creator","type":"address"}]},
  {"type":"function","name":"getAllTokens","stateMutability":"view",
   "inputs":[],
   "outputs":[{"name":"","type":"address[]"}]},
  {"type":"function","name":"getPriceHistory","stateMutability":"view",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"timestamp","type":"uint256"},
     {"name":"price","type":"uint256"}]}]},
  {"type":"function","name":"buyToken","stateMutability":"payable",
   "inputs":[{"name":"token","type":"address"}],
   "outputs":[]},
  {"type":"function","name":"sell","stateMutability":"nonpayable",
   "inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"}],
   "outputs":[]},
  {"type":"function","name":"createToken","stateMutability":"payable",
   "inputs":[
     {"name":"name","type":"string"},
     {"name":"symbol","type":"string"},
     {"name":"description","type":"string"},
     {"name":"imageURI","type":"string"},
     {"name":"k","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]}
]`,
}
