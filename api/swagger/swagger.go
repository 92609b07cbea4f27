package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CertiLink API",
        "description": "Certificate authenticity platform: institution onboarding, learner linkage and public credential verification",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login, verification and session close"},
        {"name": "Institutions", "description": "Registration, directory and documents"},
        {"name": "Admin", "description": "Review transitions and document access"},
        {"name": "Learners", "description": "Learner accounts and linkage requests"},
        {"name": "Certificates", "description": "Issuance and public verification"}
    ],
    "paths": {
        "/register/learner": {
            "post": {
                "tags": ["Learners"],
                "summary": "Register a learner",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterLearnerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate email", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/register/institution": {
            "post": {
                "tags": ["Institutions"],
                "summary": "Register an institution with inline document metadata",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterInstitutionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate email", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/register/institution/upload": {
            "post": {
                "tags": ["Institutions"],
                "summary": "Register an institution with uploaded documents",
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid file", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/register/institution/external-storage": {
            "post": {
                "tags": ["Institutions"],
                "summary": "Register an institution with externally stored documents",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RegisterInstitutionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate a principal",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Bad credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Status blocked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/verify": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Verify the current token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Close the current session",
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/public/institutions": {
            "get": {
                "tags": ["Institutions"],
                "summary": "Public institution directory",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/institutions": {
            "get": {
                "tags": ["Institutions"],
                "summary": "List institutions (admin)",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/institution/{id}/documents": {
            "get": {
                "tags": ["Institutions"],
                "summary": "List an institution's documents",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/institution/{id}/status": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Transition an institution's status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SetStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/institution/{id}/suspend": {
            "patch": {
                "tags": ["Admin"],
                "summary": "Suspend an institution",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/document/{id}/view": {
            "get": {
                "tags": ["Admin"],
                "summary": "View a submitted document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/document/{id}/download": {
            "get": {
                "tags": ["Admin"],
                "summary": "Download a submitted document",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificats/public/{uuid}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Resolve a certificate by UUID",
                "parameters": [
                    {"name": "uuid", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificats/public/{uuid}/verify": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Check on-chain anchoring",
                "parameters": [
                    {"name": "uuid", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificats": {
            "post": {
                "tags": ["Certificates"],
                "summary": "Issue a certificate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/IssueCertificateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not an active institution", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Certificates"],
                "summary": "List own certificates",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/certificats/files/{token}": {
            "get": {
                "tags": ["Certificates"],
                "summary": "Download a certificate PDF by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "institution", "learner"]}
            },
            "required": ["email", "password", "role"]
        },
        "RegisterLearnerRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"},
                "name": {"type": "string"},
                "surname": {"type": "string"},
                "phone": {"type": "string"},
                "institutions": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["email", "password", "name", "surname"]
        },
        "RegisterInstitutionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "registration_number": {"type": "string"},
                "category": {"type": "string"},
                "address": {"type": "string"},
                "phone": {"type": "string"},
                "rep_name": {"type": "string"},
                "rep_email": {"type": "string"},
                "rep_phone": {"type": "string"},
                "documents": {"type": "array", "items": {"$ref": "#/definitions/InlineDocument"}}
            },
            "required": ["name", "email", "password", "registration_number", "category", "address", "phone", "rep_name", "rep_email"]
        },
        "InlineDocument": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "original_filename": {"type": "string"},
                "mime_type": {"type": "string"},
                "size_bytes": {"type": "integer"},
                "url": {"type": "string"}
            },
            "required": ["type"]
        },
        "SetStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["ACTIVE", "REJECTED", "SUSPENDED"]},
                "comments": {"type": "string"}
            },
            "required": ["status"]
        },
        "IssueCertificateRequest": {
            "type": "object",
            "properties": {
                "learner_name": {"type": "string"},
                "title": {"type": "string"},
                "mention": {"type": "string"},
                "issue_date": {"type": "string", "format": "date-time"}
            },
            "required": ["learner_name", "title"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
