// Package docs swagger 文档，由 swag init 生成后手动精简
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
        "/download-file": {
            "post": {
                "description": "校验限流、有效期和下载次数，成功后消费一次下载并返回限时签名 URL",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["下载"],
                "summary": "通过分享 token 下载文件",
                "parameters": [
                    {
                        "description": "分享 token 与可选密码",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/handlers.DownloadRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "签名下载地址", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "400": {"description": "token 缺失或格式错误", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "403": {"description": "限流、过期、次数用完或密码错误，data.reason 给出原因", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "404": {"description": "分享链接不存在或已停用", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "500": {"description": "服务器内部错误，data.error_id 用于排查", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/share/{token}": {
            "get": {
                "description": "返回文件名、大小、过期时间和剩余次数；设置了密码时只返回是否需要密码",
                "produces": ["application/json"],
                "tags": ["下载"],
                "summary": "预览分享链接",
                "parameters": [
                    {"type": "string", "description": "分享 token", "name": "token", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "分享预览", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "403": {"description": "限流、过期或次数用完", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "404": {"description": "分享链接不存在或已停用", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/files": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["文件"],
                "summary": "上传文件",
                "parameters": [
                    {"type": "file", "description": "要上传的文件", "name": "file", "in": "formData", "required": true},
                    {"type": "integer", "description": "链接有效期(分钟)", "name": "expires_in_minutes", "in": "formData"},
                    {"type": "integer", "description": "最大下载次数", "name": "max_downloads", "in": "formData"},
                    {"type": "string", "description": "链接密码", "name": "password", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "上传成功", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "400": {"description": "请求参数无效", "schema": {"$ref": "#/definitions/xerr.Response"}},
                    "413": {"description": "文件过大", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/files/{file_id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["文件"],
                "summary": "删除文件",
                "parameters": [
                    {"type": "integer", "description": "文件 ID", "name": "file_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "删除成功", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/files/{file_id}/share-links": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["分享"],
                "summary": "创建分享链接",
                "parameters": [
                    {"type": "integer", "description": "文件 ID", "name": "file_id", "in": "path", "required": true},
                    {"description": "链接限制", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/handlers.CreateShareRequest"}}
                ],
                "responses": {
                    "200": {"description": "分享链接创建成功", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/share-links": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["分享"],
                "summary": "列出我的分享链接",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "default": 20, "description": "每页数量", "name": "page_size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "分享链接列表", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/share-links/{link_id}": {
            "delete": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["分享"],
                "summary": "停用分享链接",
                "parameters": [
                    {"type": "integer", "description": "分享链接 ID", "name": "link_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "已停用", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/share-links/{link_id}/regenerate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["分享"],
                "summary": "重新生成分享 token",
                "parameters": [
                    {"type": "integer", "description": "分享链接 ID", "name": "link_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "新的 token", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        },
        "/api/v1/share-links/{link_id}/downloads": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["分享"],
                "summary": "分享链接下载记录",
                "parameters": [
                    {"type": "integer", "description": "分享链接 ID", "name": "link_id", "in": "path", "required": true},
                    {"type": "integer", "default": 100, "description": "最多返回条数", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "下载记录", "schema": {"$ref": "#/definitions/xerr.Response"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.CreateShareRequest": {
            "type": "object",
            "properties": {
                "expires_in_minutes": {"type": "integer"},
                "max_downloads": {"type": "integer"},
                "password": {"type": "string"}
            }
        },
        "handlers.DownloadRequest": {
            "type": "object",
            "properties": {
                "password": {"type": "string"},
                "token": {"type": "string"}
            }
        },
        "xerr.Response": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "go-sharelink API",
	Description:      "文件分享链接与匿名下载授权服务",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
