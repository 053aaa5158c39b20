// Package docs holds the swagger document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/http/main.go` after changing handler
// annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "description": "Returns the health status of the API, including uptime and current timestamp",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "Service is healthy", "schema": {"$ref": "#/definitions/health.healthResponse"}},
                    "503": {"description": "Service is unhealthy", "schema": {"$ref": "#/definitions/health.healthResponse"}}
                }
            }
        },
        "/ready": {
            "get": {
                "description": "Pings every configured dependency and reports the ones that failed",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Service is ready", "schema": {"$ref": "#/definitions/health.healthResponse"}},
                    "503": {"description": "A dependency is unavailable", "schema": {"$ref": "#/definitions/health.healthResponse"}}
                }
            }
        },
        "/problems/{problemId}": {
            "get": {
                "description": "Returns the statement of a problem. Test case contents are not exposed.",
                "produces": ["application/json"],
                "tags": ["problems"],
                "summary": "Get a problem",
                "parameters": [
                    {"type": "string", "description": "Problem ID", "name": "problemId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Problem", "schema": {"$ref": "#/definitions/problems.problemResponse"}},
                    "404": {"description": "Problem not found", "schema": {"$ref": "#/definitions/json.ErrorResponse"}},
                    "503": {"description": "Problem store not configured", "schema": {"$ref": "#/definitions/json.ErrorResponse"}}
                }
            }
        },
        "/rooms/ws": {
            "get": {
                "description": "Upgrades to a websocket carrying room, match and editor events. When authentication is configured a bearer token or token query parameter is required.",
                "tags": ["rooms"],
                "summary": "Open the match websocket",
                "parameters": [
                    {"type": "string", "description": "Identity token", "name": "token", "in": "query"}
                ],
                "responses": {
                    "101": {"description": "Switching Protocols"},
                    "401": {"description": "Missing or invalid token", "schema": {"$ref": "#/definitions/json.ErrorResponse"}},
                    "503": {"description": "Server is shutting down", "schema": {"$ref": "#/definitions/json.ErrorResponse"}}
                }
            }
        },
        "/rooms/{roomId}": {
            "get": {
                "description": "Returns the current slots, status and match times of a room",
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Get a room snapshot",
                "parameters": [
                    {"type": "string", "description": "Room ID", "name": "roomId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "Room snapshot", "schema": {"$ref": "#/definitions/rooms.roomResponse"}},
                    "404": {"description": "Room not found", "schema": {"$ref": "#/definitions/json.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "health.healthResponse": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ok", "unhealthy"], "example": "ok"},
                "timestamp": {"type": "string", "example": "2024-01-01T12:00:00Z"},
                "uptime": {"type": "string", "example": "2h30m45s"},
                "failing": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "json.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "problems.problemResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "two-sum"},
                "title": {"type": "string", "example": "Two Sum"},
                "description": {"type": "string"},
                "difficulty": {"type": "string", "example": "easy"},
                "examples": {"type": "integer", "example": 3}
            }
        },
        "rooms.roomResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "room-42"},
                "teamA": {"type": "array", "items": {"type": "string"}},
                "teamB": {"type": "array", "items": {"type": "string"}},
                "status": {"type": "string", "enum": ["lobby", "in-progress", "ended"], "example": "lobby"},
                "startTime": {"type": "integer", "example": 1700000000000},
                "endTime": {"type": "integer", "example": 1700001800000},
                "duration": {"type": "integer", "example": 1800},
                "teamAFinishedTime": {"type": "integer"},
                "teamBFinishedTime": {"type": "integer"},
                "endReason": {"type": "string", "example": "time_up"},
                "solved": {"type": "object", "additionalProperties": {"type": "array", "items": {"type": "string"}}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "CodeClash API",
	Description:      "Room and match coordination for team coding matches.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
