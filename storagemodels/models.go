/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import "fmt"

// Family is a household record. It is stored in a container partitioned by
// LastName; (ID, LastName) identifies it.
type Family struct {
	// Unique identifier within the partition.
	ID string `json:"id" dynamodbav:"id" bson:"id" yaml:"id"`

	// Partition key.
	LastName string `json:"LastName" dynamodbav:"LastName" bson:"LastName" yaml:"lastName"`

	Parents  []Parent `json:"Parents" dynamodbav:"Parents" bson:"Parents" yaml:"parents"`
	Children []Child  `json:"Children" dynamodbav:"Children" bson:"Children" yaml:"children"`
	Address  Address  `json:"Address" dynamodbav:"Address" bson:"Address" yaml:"address"`

	IsRegistered bool `json:"IsRegistered" dynamodbav:"IsRegistered" bson:"IsRegistered" yaml:"isRegistered"`
}

// Parent of a family.
type Parent struct {
	FamilyName string `json:"FamilyName,omitempty" dynamodbav:"FamilyName,omitempty" bson:"FamilyName,omitempty" yaml:"familyName,omitempty"`
	FirstName  string `json:"FirstName" dynamodbav:"FirstName" bson:"FirstName" yaml:"firstName"`
}

// Child of a family.
type Child struct {
	FamilyName string `json:"FamilyName,omitempty" dynamodbav:"FamilyName,omitempty" bson:"FamilyName,omitempty" yaml:"familyName,omitempty"`
	FirstName  string `json:"FirstName" dynamodbav:"FirstName" bson:"FirstName" yaml:"firstName"`
	Gender     string `json:"Gender" dynamodbav:"Gender" bson:"Gender" yaml:"gender"`
	Grade      int    `json:"Grade" dynamodbav:"Grade" bson:"Grade" yaml:"grade"`
	Pets       []Pet  `json:"Pets,omitempty" dynamodbav:"Pets,omitempty" bson:"Pets,omitempty" yaml:"pets,omitempty"`
}

// Pet owned by a child.
type Pet struct {
	GivenName string `json:"GivenName" dynamodbav:"GivenName" bson:"GivenName" yaml:"givenName"`
}

// Address of a family.
type Address struct {
	State  string `json:"State" dynamodbav:"State" bson:"State" yaml:"state"`
	County string `json:"County" dynamodbav:"County" bson:"County" yaml:"county"`
	City   string `json:"City" dynamodbav:"City" bson:"City" yaml:"city"`
}

// String renders the identity of the family; logs carry the full body separately.
func (f Family) String() string {
	return fmt.Sprintf("Family[%s,%s]", f.LastName, f.ID)
}
