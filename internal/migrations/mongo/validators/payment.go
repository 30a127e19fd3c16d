package validators

import "go.mongodb.org/mongo-driver/bson"

var PaymentValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"booking_id",
			"amount",
			"currency",
			"payer_id",
			"payee_id",
			"status",
			"version",
			"timestamp",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"booking_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"amount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"currency": bson.M{
				"bsonType": "string",
				"pattern":  "^[a-z]{3}$",
			},

			"payer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"payee_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"processing",
					"completed",
					"failed",
					"refunded",
				},
			},

			"gateway_ref": bson.M{
				"bsonType": "string",
			},

			"refunded_amount": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"timestamp": bson.M{
				"bsonType": "date",
			},
		},
	},
}
