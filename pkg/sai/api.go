package sai

import "fmt"

// API identifies one method table of the switch abstraction interface.
// Values follow the SAI numbering.
type API int32

const (
	APIUnspecified     API = 0
	APISwitch          API = 1
	APIPort            API = 2
	APIVirtualRouter   API = 5
	APIRoute           API = 6
	APINextHop         API = 7
	APINextHopGroup    API = 8
	APIRouterInterface API = 9
	APILAG             API = 16
)

var apiNames = map[API]string{
	APIUnspecified:     "UNSPECIFIED",
	APISwitch:          "SWITCH",
	APIPort:            "PORT",
	APIVirtualRouter:   "VIRTUAL_ROUTER",
	APIRoute:           "ROUTE",
	APINextHop:         "NEXT_HOP",
	APINextHopGroup:    "NEXT_HOP_GROUP",
	APIRouterInterface: "ROUTER_INTERFACE",
	APILAG:             "LAG",
}

func (a API) String() string {
	if name, ok := apiNames[a]; ok {
		return "SAI_API_" + name
	}
	return fmt.Sprintf("SAI_API_%d", int32(a))
}
