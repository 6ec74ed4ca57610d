// Package docs - Swagger documentation
// Run 'make swagger' to regenerate.
package docs

import "github.com/swaggo/swag"

// SwaggerInfo holds exported swagger metadata; the server updates Host at
// request time.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Slot Machine Registry API",
	Description:      "Slot machine registry and jackpot service API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  `{"swagger":"2.0","info":{"title":"Slot Machine Registry API","version":"1.0"},"basePath":"/api"}`,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
