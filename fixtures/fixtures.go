package fixtures

import (
	"embed"
)

//go:embed abi/ERC165.json
var ERC165ABI string

//go:embed abi/Exchange.json
var ExchangeABI string

//go:embed abi/Auction.json
var AuctionABI string

// FS holds the ABI files and the sample registry manifest.
//
//go:embed abi registry
var FS embed.FS

// RegistryManifestPath is the path of the sample manifest inside FS.
const RegistryManifestPath = "registry/manifest.yaml"

//go:embed config/config.yaml.template
var ConfigTemplate []byte
